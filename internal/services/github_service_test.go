package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGitHubTestService(t *testing.T, handler http.HandlerFunc) *GitHubService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return NewGitHubServiceWithClient(client, time.Minute)
}

func TestGitHubService_DefaultBranch(t *testing.T) {
	var hits atomic.Int32
	svc := newGitHubTestService(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/repos/acme/web":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"name":"web","full_name":"acme/web","default_branch":"develop"}`)
		case "/repos/acme/empty":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"name":"empty"}`)
		default:
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		}
	})
	ctx := context.Background()

	branch, err := svc.DefaultBranch(ctx, "acme/web")
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)

	// Cached, case-insensitively
	branch, err = svc.DefaultBranch(ctx, "Acme/Web")
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)
	assert.EqualValues(t, 1, hits.Load())

	_, err = svc.DefaultBranch(ctx, "acme/missing")
	assert.Error(t, err)

	_, err = svc.DefaultBranch(ctx, "acme/empty")
	assert.ErrorContains(t, err, "no default branch")

	_, err = svc.DefaultBranch(ctx, "not-a-repo")
	assert.ErrorIs(t, err, models.ErrRepositoryInvalid)
}
