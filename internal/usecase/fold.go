package usecase

import (
	"context"
	"errors"

	"github.com/naka-gawa/portfolio-stats/internal/domain"
	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds the in-flight per-repository requests of one aggregator.
const fetchConcurrency = 5

var errMissingOwner = errors.New("repository has no owner")

// fetchResult is the outcome of fetching one repository's data.
type fetchResult[T any] struct {
	Repo  domain.RepositoryRef
	Value T
	Err   error
}

// fetchAll runs fetch for every repository and returns the results in the
// order of repos, regardless of completion order. Failures are recorded, never returned.
func fetchAll[T any](ctx context.Context, repos []domain.RepositoryRef, fetch func(context.Context, domain.RepositoryRef) (T, error)) []fetchResult[T] {
	results := make([]fetchResult[T], len(repos))

	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, repo := range repos {
		g.Go(func() error {
			results[i].Repo = repo
			if repo.OwnerLogin == "" {
				results[i].Err = errMissingOwner
				return nil
			}
			results[i].Value, results[i].Err = fetch(ctx, repo)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// foldSuccesses folds the values of all successful results into acc and
// discards the failed ones.
func foldSuccesses[T, A any](results []fetchResult[T], acc A, fn func(A, T) A) A {
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		acc = fn(acc, r.Value)
	}
	return acc
}

// failures returns the failed results.
func failures[T any](results []fetchResult[T]) []fetchResult[T] {
	var failed []fetchResult[T]
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// sample returns the first n repositories.
func sample(repos []domain.RepositoryRef, n int) []domain.RepositoryRef {
	if len(repos) <= n {
		return repos
	}
	return repos[:n]
}
