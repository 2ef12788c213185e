// Package domain contains the core data structures and domain logic for the application.
package domain

import "errors"

var (
	// ErrUserNotFound is returned when the target username does not exist upstream.
	ErrUserNotFound = errors.New("user not found")
	// ErrListingFailed is returned for any other failure while listing repositories.
	ErrListingFailed = errors.New("failed to list repositories")
)

// RepositoryRef is the minimal projection of an upstream repository.
type RepositoryRef struct {
	Name       string `json:"name"`
	OwnerLogin string `json:"owner"`
}

// LanguageStats maps a language name to the total number of bytes written in it.
type LanguageStats map[string]int

// CommitDay holds the number of commits authored on a single UTC calendar day.
type CommitDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CommitActivity is a dense, oldest-first daily series.
type CommitActivity []CommitDay

// Total returns the sum of all daily counts.
func (a CommitActivity) Total() int {
	total := 0
	for _, d := range a {
		total += d.Count
	}
	return total
}

// GitHubStats is the aggregated result returned to clients.
// It is the core domain entity of this application.
type GitHubStats struct {
	Languages      LanguageStats  `json:"languages"`
	CommitActivity CommitActivity `json:"commitActivity"`
	TotalRepos     int            `json:"totalRepos"`
	TotalCommits   int            `json:"totalCommits"`
}
