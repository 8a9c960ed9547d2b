package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alimgiray/storyhub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": GetRequestID(c),
			"has_logger": logger.FromContext(c.Request.Context()).Data["request_id"] != nil,
		})
	})
	return router
}

func TestRequestContext(t *testing.T) {
	router := newRouter(RequestContext())

	t.Run("assigns an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
		assert.Contains(t, w.Body.String(), `"has_logger":true`)
	})

	t.Run("keeps a valid incoming id", func(t *testing.T) {
		id := uuid.New().String()
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, id)
		router.ServeHTTP(w, req)

		assert.Equal(t, id, w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces a malformed incoming id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		router.ServeHTTP(w, req)

		assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
	})
}

func TestTokenRequired(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		value      string
		wantStatus int
	}{
		{name: "disabled", token: "", wantStatus: http.StatusOK},
		{name: "missing", token: "secret", wantStatus: http.StatusUnauthorized},
		{name: "bearer", token: "secret", header: "Authorization", value: "Bearer secret", wantStatus: http.StatusOK},
		{name: "api token header", token: "secret", header: "X-API-Token", value: "secret", wantStatus: http.StatusOK},
		{name: "wrong", token: "secret", header: "Authorization", value: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(TokenRequired(tt.token))
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
