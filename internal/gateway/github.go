// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/portfolio-stats/internal/domain"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// classicTokenPrefix marks classic personal access tokens, which GitHub
// accepts with the legacy "token" authorization scheme.
const classicTokenPrefix = "ghp_"

// mediaType is sent as Accept on every outbound call, REST and GraphQL alike.
const mediaType = "application/vnd.github.v3+json"

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	// Authenticated reports whether a credential is configured.
	Authenticated() bool
	FetchViewerLogin(ctx context.Context) (string, error)
	FetchRepositories(ctx context.Context, user string, elevated bool, page, perPage int) ([]domain.RepositoryRef, error)
	FetchLanguages(ctx context.Context, owner, repo string) (map[string]int, error)
	FetchCommitDates(ctx context.Context, owner, repo string, since time.Time, perPage int) ([]time.Time, error)
}

// Options configures the outbound clients.
type Options struct {
	Token      string
	BaseURL    string
	GraphQLURL string
	Timeout    time.Duration
	// RateLimitMaxSleep enables waiting out secondary rate limits for at most
	// this long per request. Zero disables waiting.
	RateLimitMaxSleep time.Duration
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	authenticated bool
	logger        *zap.Logger
}

// viewerQuery resolves the login of the identity owning the credential.
type viewerQuery struct {
	Viewer struct {
		Login githubv4.String
	}
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(opts Options, logger *zap.Logger) (Fetcher, error) {
	transport, err := newTransport(opts, logger)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Transport: transport, Timeout: opts.Timeout}

	restClient := github.NewClient(httpClient)
	if opts.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("failed to parse GitHub API URL: %w", err)
		}
		restClient.BaseURL = baseURL
	}

	graphqlClient := githubv4.NewClient(httpClient)
	if endpoint := graphQLEndpoint(opts); endpoint != "" {
		graphqlClient = githubv4.NewEnterpriseClient(endpoint, httpClient)
	}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		authenticated: opts.Token != "",
		logger:        logger,
	}, nil
}

// graphQLEndpoint returns the GraphQL URL to use, or "" for api.github.com.
// Without an explicit GraphQLURL it is derived from BaseURL so Enterprise
// credentials never reach the public endpoint: ".../api/v3" maps to
// ".../api/graphql", any other base to "<base>/graphql".
func graphQLEndpoint(opts Options) string {
	if opts.GraphQLURL != "" {
		return opts.GraphQLURL
	}
	if opts.BaseURL == "" {
		return ""
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if strings.HasSuffix(base, "/api/v3") {
		return strings.TrimSuffix(base, "/v3") + "/graphql"
	}
	return base + "/graphql"
}

// acceptTransport sets the Accept header on requests that lack one.
type acceptTransport struct {
	base http.RoundTripper
}

func (t *acceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Accept", mediaType)
	return t.base.RoundTrip(clone)
}

// newTransport builds the round tripper chain: credential injection on top of
// Accept defaulting on top of the optional secondary rate limit waiter on top
// of the default transport.
func newTransport(opts Options, logger *zap.Logger) (http.RoundTripper, error) {
	var base http.RoundTripper = http.DefaultTransport
	if opts.RateLimitMaxSleep > 0 {
		waiter, err := github_ratelimit.NewRateLimitWaiter(base,
			github_ratelimit.WithLimitDetectedCallback(func(cb *github_ratelimit.CallbackContext) {
				logger.Warn("secondary rate limit detected", rateLimitFields(cb)...)
			}),
			github_ratelimit.WithSingleSleepLimit(opts.RateLimitMaxSleep, func(cb *github_ratelimit.CallbackContext) {
				logger.Warn("secondary rate limit sleep exceeds limit, giving up", rateLimitFields(cb)...)
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
		}
		base = waiter
	}
	base = &acceptTransport{base: base}

	if opts.Token == "" {
		return base, nil
	}
	return &oauth2.Transport{
		Base:   base,
		Source: oauth2.StaticTokenSource(newToken(opts.Token)),
	}, nil
}

// newToken picks the authorization scheme from the credential's prefix.
func newToken(credential string) *oauth2.Token {
	tokenType := "Bearer"
	if strings.HasPrefix(credential, classicTokenPrefix) {
		tokenType = "token"
	}
	return &oauth2.Token{AccessToken: credential, TokenType: tokenType}
}

func rateLimitFields(cb *github_ratelimit.CallbackContext) []zap.Field {
	var fields []zap.Field
	if cb.Request != nil {
		fields = append(fields, zap.String("url", cb.Request.URL.String()))
	}
	if cb.SleepUntil != nil {
		fields = append(fields, zap.Time("sleep_until", *cb.SleepUntil))
	}
	return fields
}

func (g *GitHubGateway) Authenticated() bool {
	return g.authenticated
}

func (g *GitHubGateway) FetchViewerLogin(ctx context.Context) (string, error) {
	var q viewerQuery
	if err := g.graphqlClient.Query(ctx, &q, nil); err != nil {
		return "", fmt.Errorf("failed to execute GraphQL viewer query: %w", err)
	}
	return string(q.Viewer.Login), nil
}

// FetchRepositories fetches a single page of repositories. When elevated is set
// the authenticated identity's repositories are listed across all affiliations
// and visibilities, and user is ignored.
func (g *GitHubGateway) FetchRepositories(ctx context.Context, user string, elevated bool, page, perPage int) ([]domain.RepositoryRef, error) {
	listOpts := github.ListOptions{Page: page, PerPage: perPage}

	var (
		repos []*github.Repository
		resp  *github.Response
		err   error
	)
	if elevated {
		g.logger.Debug("fetching repositories of authenticated user", zap.Int("page", page))
		repos, resp, err = g.restClient.Repositories.ListByAuthenticatedUser(ctx, &github.RepositoryListByAuthenticatedUserOptions{
			Visibility:  "all",
			Affiliation: "owner,collaborator,organization_member",
			Sort:        "updated",
			ListOptions: listOpts,
		})
	} else {
		g.logger.Debug("fetching public repositories", zap.String("user", user), zap.Int("page", page))
		repos, resp, err = g.restClient.Repositories.ListByUser(ctx, user, &github.RepositoryListByUserOptions{
			Sort:        "updated",
			ListOptions: listOpts,
		})
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, user)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrListingFailed, err)
	}

	refs := make([]domain.RepositoryRef, 0, len(repos))
	for _, r := range repos {
		refs = append(refs, domain.RepositoryRef{
			Name:       r.GetName(),
			OwnerLogin: r.GetOwner().GetLogin(),
		})
	}
	return refs, nil
}

func (g *GitHubGateway) FetchLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	languages, _, err := g.restClient.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to list languages of %s/%s: %w", owner, repo, err)
	}
	return languages, nil
}

// FetchCommitDates fetches the author dates of up to perPage most recent
// commits authored on or after since. Commits without an author date are dropped.
func (g *GitHubGateway) FetchCommitDates(ctx context.Context, owner, repo string, since time.Time, perPage int) ([]time.Time, error) {
	commits, _, err := g.restClient.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		Since:       since,
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list commits of %s/%s: %w", owner, repo, err)
	}

	dates := make([]time.Time, 0, len(commits))
	for _, c := range commits {
		author := c.GetCommit().GetAuthor()
		if author == nil || author.Date == nil {
			continue
		}
		dates = append(dates, author.Date.Time)
	}
	return dates, nil
}

