// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/naka-gawa/portfolio-stats/internal/domain"
	"github.com/naka-gawa/portfolio-stats/internal/gateway"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	repoPageSize = 100
	// maxRepoPages guards the listing loop against an upstream that never
	// returns a short page.
	maxRepoPages = 100

	languageSampleSize = 30
	commitSampleSize   = 10
	commitsPerRepo     = 100

	activityDays = 366
	dateLayout   = "2006-01-02"
)

// Aggregator is the use case for aggregating GitHub stats.
// It orchestrates the fetching and combining of data.
type Aggregator struct {
	fetcher gateway.Fetcher
	logger  *zap.Logger
	now     func() time.Time
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// Aggregate performs the main business logic.
// It lists the user's repositories, then aggregates languages and commit
// activity concurrently over that list.
func (a *Aggregator) Aggregate(ctx context.Context, username string) (*domain.GitHubStats, error) {
	a.logger.Debug("starting aggregation", zap.String("user", username))

	elevated := a.ResolveElevated(ctx, username)
	repos, err := a.ListRepositories(ctx, username, elevated)
	if err != nil {
		return nil, err
	}

	var (
		languages domain.LanguageStats
		activity  domain.CommitActivity
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		languages, err = a.AggregateLanguages(egCtx, repos)
		return err
	})
	eg.Go(func() error {
		var err error
		activity, err = a.AggregateCommitActivity(egCtx, repos)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	stats := &domain.GitHubStats{
		Languages:      languages,
		CommitActivity: activity,
		TotalRepos:     len(repos),
		TotalCommits:   activity.Total(),
	}
	a.logger.Debug("aggregation complete",
		zap.String("user", username),
		zap.Int("repos", stats.TotalRepos),
		zap.Int("languages", len(stats.Languages)),
		zap.Int("commits", stats.TotalCommits),
	)
	return stats, nil
}

// ResolveElevated reports whether the configured credential belongs to
// username, in which case its private and collaborator repositories are visible.
// Any failure falls back to public mode.
func (a *Aggregator) ResolveElevated(ctx context.Context, username string) bool {
	if !a.fetcher.Authenticated() {
		return false
	}
	login, err := a.fetcher.FetchViewerLogin(ctx)
	if err != nil {
		a.logger.Warn("could not resolve authenticated identity, using public mode", zap.Error(err))
		return false
	}
	return isSelf(username, login)
}

// isSelf trims only the target username; the resolved login is compared as returned.
func isSelf(username, login string) bool {
	if login == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(username), login)
}

// ListRepositories pages through all repositories sequentially.
// Listing stops after maxRepoPages pages (10,000 repositories): the partial
// list is returned with a nil error and a warning is logged.
func (a *Aggregator) ListRepositories(ctx context.Context, username string, elevated bool) ([]domain.RepositoryRef, error) {
	var repos []domain.RepositoryRef
	for state := firstPage(); !state.Done; {
		if state.Page > maxRepoPages {
			a.logger.Warn("repository page limit reached", zap.String("user", username), zap.Int("pages", maxRepoPages))
			break
		}
		page, err := a.fetcher.FetchRepositories(ctx, username, elevated, state.Page, repoPageSize)
		if err != nil {
			return nil, err
		}
		repos = append(repos, page...)
		state = nextPageState(state, len(page), repoPageSize)
	}
	return repos, nil
}

// AggregateLanguages sums the language byte counts of the first
// languageSampleSize repositories. Repositories that fail are skipped.
func (a *Aggregator) AggregateLanguages(ctx context.Context, repos []domain.RepositoryRef) (domain.LanguageStats, error) {
	results := fetchAll(ctx, sample(repos, languageSampleSize), func(ctx context.Context, repo domain.RepositoryRef) (map[string]int, error) {
		return a.fetcher.FetchLanguages(ctx, repo.OwnerLogin, repo.Name)
	})
	logSkipped(a.logger, "languages", results)

	languages := foldSuccesses(results, domain.LanguageStats{}, func(acc domain.LanguageStats, langs map[string]int) domain.LanguageStats {
		for lang, bytes := range langs {
			acc[lang] += bytes
		}
		return acc
	})
	return languages, ctx.Err()
}

// AggregateCommitActivity counts the commits of the last year per UTC day over
// the first commitSampleSize repositories and returns a dense series of
// activityDays entries ending today.
func (a *Aggregator) AggregateCommitActivity(ctx context.Context, repos []domain.RepositoryRef) (domain.CommitActivity, error) {
	now := a.now().UTC()
	since := now.AddDate(-1, 0, 0)

	results := fetchAll(ctx, sample(repos, commitSampleSize), func(ctx context.Context, repo domain.RepositoryRef) ([]time.Time, error) {
		return a.fetcher.FetchCommitDates(ctx, repo.OwnerLogin, repo.Name, since, commitsPerRepo)
	})
	logSkipped(a.logger, "commits", results)

	counts := foldSuccesses(results, map[string]int{}, func(acc map[string]int, dates []time.Time) map[string]int {
		for _, d := range dates {
			acc[d.UTC().Format(dateLayout)]++
		}
		return acc
	})
	return buildActivity(now, counts), ctx.Err()
}

// buildActivity lays counts out over the activityDays days ending on today.
func buildActivity(today time.Time, counts map[string]int) domain.CommitActivity {
	activity := make(domain.CommitActivity, 0, activityDays)
	for i := activityDays - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format(dateLayout)
		activity = append(activity, domain.CommitDay{Date: date, Count: counts[date]})
	}
	return activity
}

func logSkipped[T any](logger *zap.Logger, kind string, results []fetchResult[T]) {
	for _, r := range failures(results) {
		logger.Warn("skipping repository",
			zap.String("kind", kind),
			zap.String("owner", r.Repo.OwnerLogin),
			zap.String("repo", r.Repo.Name),
			zap.Error(r.Err),
		)
	}
}
