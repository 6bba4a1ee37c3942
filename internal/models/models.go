package models

import (
	"time"
)

// Repository represents a GitHub repository
type Repository struct {
	Owner         string
	Name          string
	DefaultBranch string
}

// FullName returns the repository in "owner/name" form
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Commit represents a git commit with its change stats
type Commit struct {
	SHA          string
	RepoOwner    string
	RepoName     string
	AuthorLogin  string
	AuthorName   string
	CommittedAt  time.Time
	Additions    int
	Deletions    int
	FilesChanged int
	Message      string
}

// PullRequest represents a GitHub pull request.
// ID is the global numeric id; Number is only unique within a repository.
type PullRequest struct {
	ID           int64
	RepoOwner    string
	RepoName     string
	Number       int
	AuthorLogin  string
	Title        string
	CreatedAt    time.Time
	MergedAt     *time.Time
	ClosedAt     *time.Time
	State        string
	Additions    int
	Deletions    int
	ChangedFiles int
}

// Review represents a pull request review
type Review struct {
	ID            int64
	RepoOwner     string
	RepoName      string
	PRNumber      int
	ReviewerLogin string
	State         string
	SubmittedAt   *time.Time
	Body          string
}

// ReviewComment represents a comment on a pull request review thread
type ReviewComment struct {
	ID             int64
	RepoOwner      string
	RepoName       string
	PRNumber       int
	CommenterLogin string
	CreatedAt      *time.Time
	Body           string
}

// Issue represents a GitHub issue. Pull requests surfaced by the issues
// endpoint are filtered out before an Issue is ever constructed.
type Issue struct {
	ID          int64
	RepoOwner   string
	RepoName    string
	Number      int
	AuthorLogin string
	Title       string
	CreatedAt   time.Time
	ClosedAt    *time.Time
	State       string
	IsBug       bool
}

// Deployment is a deployment event derived from a completed workflow run.
// ExternalID is the workflow run id and deduplicates re-ingested runs.
type Deployment struct {
	ExternalID  int64
	RepoOwner   string
	RepoName    string
	DeployedAt  time.Time
	Environment string
	Status      string
	Source      string
}
