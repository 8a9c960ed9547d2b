package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alimgiray/storyhub/internal/models"
	"github.com/google/go-github/v57/github"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"
)

const (
	defaultBranchCacheSize = 256
	defaultBranchCacheTTL  = time.Hour
)

// GitHubService resolves repository metadata from the GitHub API. Lookups are
// cached per repository.
type GitHubService struct {
	client *github.Client
	cache  *expirable.LRU[string, string]
}

// NewGitHubService creates a client authenticated with token. An empty token
// makes anonymous, rate-limited requests.
func NewGitHubService(token string, ttl time.Duration) *GitHubService {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	return NewGitHubServiceWithClient(github.NewClient(httpClient), ttl)
}

// NewGitHubServiceWithClient wraps an existing client, e.g. one pointed at a
// GitHub Enterprise or test server
func NewGitHubServiceWithClient(client *github.Client, ttl time.Duration) *GitHubService {
	if ttl <= 0 {
		ttl = defaultBranchCacheTTL
	}
	return &GitHubService{
		client: client,
		cache:  expirable.NewLRU[string, string](defaultBranchCacheSize, nil, ttl),
	}
}

// DefaultBranch returns the default branch of an owner/repo repository
func (s *GitHubService) DefaultBranch(ctx context.Context, repository string) (string, error) {
	if err := models.ValidateRepository(repository); err != nil {
		return "", err
	}
	key := strings.ToLower(repository)
	if branch, ok := s.cache.Get(key); ok {
		return branch, nil
	}

	owner, name, _ := strings.Cut(repository, "/")
	repo, _, err := s.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("failed to get repository %s: %w", repository, err)
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", fmt.Errorf("repository %s has no default branch", repository)
	}

	s.cache.Add(key, branch)
	return branch, nil
}
