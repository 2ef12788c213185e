package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/portfolio-stats/internal/domain"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) *GitHubGateway {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: githubv4.NewEnterpriseClient(server.URL+"/graphql", server.Client()),
		authenticated: true,
		logger:        zap.NewNop(),
	}
}

func TestGitHubGateway_FetchRepositories(t *testing.T) {
	testCases := []struct {
		name        string
		elevated    bool
		handlerFunc func(t *testing.T) http.HandlerFunc
		expected    []domain.RepositoryRef
		expectedErr error
	}{
		{
			name: "public mode lists the user's repositories",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "/users/octocat/repos", r.URL.Path)
					assert.Equal(t, "2", r.URL.Query().Get("page"))
					assert.Equal(t, "100", r.URL.Query().Get("per_page"))
					assert.Equal(t, "updated", r.URL.Query().Get("sort"))
					fmt.Fprint(w, `[{"name":"hello-world","owner":{"login":"octocat"}},{"name":"linguist","owner":{"login":"github"}}]`)
				}
			},
			expected: []domain.RepositoryRef{
				{Name: "hello-world", OwnerLogin: "octocat"},
				{Name: "linguist", OwnerLogin: "github"},
			},
		},
		{
			name:     "elevated mode lists the authenticated user's repositories",
			elevated: true,
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, "/user/repos", r.URL.Path)
					assert.Equal(t, "all", r.URL.Query().Get("visibility"))
					assert.Equal(t, "owner,collaborator,organization_member", r.URL.Query().Get("affiliation"))
					assert.Equal(t, "updated", r.URL.Query().Get("sort"))
					fmt.Fprint(w, `[{"name":"secret","owner":{"login":"octo-org"}}]`)
				}
			},
			expected: []domain.RepositoryRef{{Name: "secret", OwnerLogin: "octo-org"}},
		},
		{
			name: "unknown user",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
					fmt.Fprint(w, `{"message": "Not Found"}`)
				}
			},
			expectedErr: domain.ErrUserNotFound,
		},
		{
			name: "upstream failure",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
					fmt.Fprint(w, `{"message": "Internal Server Error"}`)
				}
			},
			expectedErr: domain.ErrListingFailed,
		},
		{
			name: "undecodable body",
			handlerFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					fmt.Fprint(w, `{"not": "a list"}`)
				}
			},
			expectedErr: domain.ErrListingFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := setupTestGateway(t, tc.handlerFunc(t))

			repos, err := gateway.FetchRepositories(context.Background(), "octocat", tc.elevated, 2, 100)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, repos)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, repos)
			}
		})
	}
}

func TestGitHubGateway_FetchLanguages(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		gateway := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/octo-org/spoon-knife/languages", r.URL.Path)
			fmt.Fprint(w, `{"Go": 12345, "Dockerfile": 210}`)
		}))

		languages, err := gateway.FetchLanguages(context.Background(), "octo-org", "spoon-knife")

		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Go": 12345, "Dockerfile": 210}, languages)
	})

	t.Run("error case", func(t *testing.T) {
		gateway := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "Repository access blocked"}`)
		}))

		_, err := gateway.FetchLanguages(context.Background(), "octo-org", "spoon-knife")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list languages of octo-org/spoon-knife")
	})
}

func TestGitHubGateway_FetchCommitDates(t *testing.T) {
	since := time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)
	gateway := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octocat/hello-world/commits", r.URL.Path)
		assert.Equal(t, "2025-10-16T12:00:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `[
			{"sha": "a1", "commit": {"author": {"name": "Mona", "date": "2026-10-15T08:00:00Z"}}},
			{"sha": "b2", "commit": {"message": "no author"}},
			{"sha": "c3", "commit": {"author": {"name": "Hubot", "date": "2026-01-02T23:30:00-05:00"}}}
		]`)
	}))

	dates, err := gateway.FetchCommitDates(context.Background(), "octocat", "hello-world", since, 100)

	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Equal(time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)))
	assert.True(t, dates[1].Equal(time.Date(2026, 1, 3, 4, 30, 0, 0, time.UTC)))
}

func TestGitHubGateway_FetchViewerLogin(t *testing.T) {
	testCases := []struct {
		name           string
		responseBody   string
		expectedLogin  string
		expectedErrMsg string
	}{
		{
			name:          "happy path",
			responseBody:  `{"data":{"viewer":{"login":"octocat"}}}`,
			expectedLogin: "octocat",
		},
		{
			name:           "error case",
			responseBody:   `{"errors":[{"message":"Bad credentials"}]}`,
			expectedErrMsg: "failed to execute GraphQL viewer query",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/graphql", r.URL.Path)
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), "viewer")
				fmt.Fprint(w, tc.responseBody)
			}))

			login, err := gateway.FetchViewerLogin(context.Background())

			if tc.expectedErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedLogin, login)
			}
		})
	}
}

func TestNewGitHubGateway_Headers(t *testing.T) {
	testCases := []struct {
		name                string
		token               string
		rateLimitMaxSleep   time.Duration
		expectedAuth        string
		expectAuthenticated bool
	}{
		{name: "no credential", expectedAuth: ""},
		{name: "classic token uses token scheme", token: "ghp_abc123", expectedAuth: "token ghp_abc123", expectAuthenticated: true},
		{name: "fine-grained token uses bearer scheme", token: "github_pat_xyz", expectedAuth: "Bearer github_pat_xyz", expectAuthenticated: true},
		{name: "rate limit waiter in the chain", token: "gho_oauth", rateLimitMaxSleep: time.Minute, expectedAuth: "Bearer gho_oauth", expectAuthenticated: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen := make(map[string]bool)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen[r.URL.Path] = true
				assert.Equal(t, tc.expectedAuth, r.Header.Get("Authorization"), r.URL.Path)
				assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"), r.URL.Path)
				if r.URL.Path == "/graphql" {
					fmt.Fprint(w, `{"data":{"viewer":{"login":"octocat"}}}`)
					return
				}
				fmt.Fprint(w, `{"Go": 1}`)
			}))
			defer server.Close()

			// GraphQLURL is left empty: the endpoint is derived from BaseURL.
			fetcher, err := NewGitHubGateway(Options{
				Token:             tc.token,
				BaseURL:           server.URL,
				Timeout:           5 * time.Second,
				RateLimitMaxSleep: tc.rateLimitMaxSleep,
			}, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tc.expectAuthenticated, fetcher.Authenticated())

			languages, err := fetcher.FetchLanguages(context.Background(), "octocat", "hello-world")
			require.NoError(t, err)
			assert.Equal(t, map[string]int{"Go": 1}, languages)

			login, err := fetcher.FetchViewerLogin(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "octocat", login)

			assert.True(t, seen["/repos/octocat/hello-world/languages"])
			assert.True(t, seen["/graphql"])
		})
	}
}

func TestGraphQLEndpoint(t *testing.T) {
	testCases := []struct {
		name     string
		opts     Options
		expected string
	}{
		{name: "public GitHub", opts: Options{}, expected: ""},
		{name: "explicit endpoint wins", opts: Options{BaseURL: "https://ghe.example.com/api/v3", GraphQLURL: "https://gql.example.com"}, expected: "https://gql.example.com"},
		{name: "enterprise REST base", opts: Options{BaseURL: "https://ghe.example.com/api/v3/"}, expected: "https://ghe.example.com/api/graphql"},
		{name: "other base", opts: Options{BaseURL: "http://127.0.0.1:8080"}, expected: "http://127.0.0.1:8080/graphql"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, graphQLEndpoint(tc.opts))
		})
	}
}
