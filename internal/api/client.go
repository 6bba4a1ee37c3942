package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/retry"
	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/devpulse/ingest/internal/config"
	"github.com/devpulse/ingest/internal/models"
)

const (
	// listPageSize is the page size for commit/PR/issue collections
	listPageSize = 100
	// runsPageSize is the page size for workflow run listings
	runsPageSize = 50
)

// Client represents a client for the GitHub API. Every call retries on
// rate-limit responses according to the configured retry policy and fails
// immediately on any other error.
type Client struct {
	gh    *github.Client
	retry config.Retry
	log   zerolog.Logger
}

// Option configures a Client
type Option func(*Client) error

// WithBaseURL points the client at an alternate API root
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("failed to parse base URL: %w", err)
		}
		c.gh.BaseURL = u
		return nil
	}
}

// NewClient creates a new GitHub API client
func NewClient(token string, policy config.Retry, log zerolog.Logger, opts ...Option) (*Client, error) {
	var tc *http.Client

	if token != "" {
		// Create an authenticated client if a token is provided
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(context.Background(), ts)
	}

	c := &Client{
		gh:    github.NewClient(tc),
		retry: policy,
		log:   log,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// isRateLimit reports whether err is a primary or secondary rate-limit
// response from the API.
func isRateLimit(err error) bool {
	var limitErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	return errors.As(err, &limitErr) || errors.As(err, &abuseErr)
}

// doWithRetry runs one API call, retrying rate-limited responses until the
// policy's attempt budget runs out. Any other error is surfaced as-is.
func doWithRetry[T any](ctx context.Context, c *Client, op string, fn func() (T, *github.Response, error)) (T, error) {
	r := retry.New(c.retry.Floor, c.retry.Ceil)
	var zero T
	for attempt := 1; ; attempt++ {
		v, _, err := fn()
		if err == nil {
			return v, nil
		}
		if !isRateLimit(err) {
			return zero, err
		}
		if attempt >= c.retry.MaxAttempts {
			return zero, fmt.Errorf("%s: rate limit retries exhausted after %d attempts: %w", op, attempt, err)
		}
		c.log.Warn().Str("op", op).Int("attempt", attempt).Msg("rate limited, backing off")
		if !r.Wait(ctx) {
			return zero, ctx.Err()
		}
	}
}

// listAll fetches every page of a collection. Page numbering starts at 1 and
// increments once per fetch; the first empty page ends the sequence, so a
// short page does not terminate the listing early.
func listAll[T any](ctx context.Context, c *Client, op string, perPage int, fn func(opts github.ListOptions) ([]T, *github.Response, error)) ([]T, error) {
	opts := github.ListOptions{PerPage: perPage, Page: 1}
	var all []T
	for {
		items, err := doWithRetry(ctx, c, op, func() ([]T, *github.Response, error) {
			return fn(opts)
		})
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return all, nil
		}
		all = append(all, items...)
		opts.Page++
	}
}

// GetRepository gets a repository's metadata by owner and name
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*models.Repository, error) {
	repo, err := doWithRetry(ctx, c, "get repository", func() (*github.Repository, *github.Response, error) {
		return c.gh.Repositories.Get(ctx, owner, name)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, err)
	}

	return &models.Repository{
		Owner:         owner,
		Name:          name,
		DefaultBranch: repo.GetDefaultBranch(),
	}, nil
}

// ListCommits lists all commits for a repository, optionally restricted to
// those committed after since.
func (c *Client) ListCommits(ctx context.Context, owner, repo string, since time.Time) ([]*github.RepositoryCommit, error) {
	commits, err := listAll(ctx, c, "list commits", listPageSize, func(opts github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
		lo := &github.CommitsListOptions{ListOptions: opts}
		if !since.IsZero() {
			lo.Since = since
		}
		return c.gh.Repositories.ListCommits(ctx, owner, repo, lo)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list commits for %s/%s: %w", owner, repo, err)
	}
	return commits, nil
}

// GetCommit gets a single commit's detail, which carries the change stats
// the list endpoint omits.
func (c *Client) GetCommit(ctx context.Context, owner, repo, sha string) (*github.RepositoryCommit, error) {
	commit, err := doWithRetry(ctx, c, "get commit", func() (*github.RepositoryCommit, *github.Response, error) {
		return c.gh.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", sha, err)
	}
	return commit, nil
}

// ListPullRequests lists all pull requests for a repository, in every state
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string) ([]*github.PullRequest, error) {
	prs, err := listAll(ctx, c, "list pull requests", listPageSize, func(opts github.ListOptions) ([]*github.PullRequest, *github.Response, error) {
		return c.gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
			State:       "all",
			ListOptions: opts,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for %s/%s: %w", owner, repo, err)
	}
	return prs, nil
}

// GetPullRequest gets a single pull request's detail, which carries the
// additions/deletions/changed-files counts the list endpoint omits.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, err := doWithRetry(ctx, c, "get pull request", func() (*github.PullRequest, *github.Response, error) {
		return c.gh.PullRequests.Get(ctx, owner, repo, number)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}
	return pr, nil
}

// ListReviews lists all reviews for a pull request
func (c *Client) ListReviews(ctx context.Context, owner, repo string, number int) ([]*github.PullRequestReview, error) {
	reviews, err := listAll(ctx, c, "list reviews", listPageSize, func(opts github.ListOptions) ([]*github.PullRequestReview, *github.Response, error) {
		return c.gh.PullRequests.ListReviews(ctx, owner, repo, number, &opts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for pull request #%d: %w", number, err)
	}
	return reviews, nil
}

// ListReviewComments lists all review comments for a pull request
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, number int) ([]*github.PullRequestComment, error) {
	comments, err := listAll(ctx, c, "list review comments", listPageSize, func(opts github.ListOptions) ([]*github.PullRequestComment, *github.Response, error) {
		return c.gh.PullRequests.ListComments(ctx, owner, repo, number, &github.PullRequestListCommentsOptions{
			ListOptions: opts,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list review comments for pull request #%d: %w", number, err)
	}
	return comments, nil
}

// ListIssues lists all issues for a repository, in every state. Pull
// requests surfaced by this endpoint are not filtered here; callers use
// Issue.IsPullRequest to skip them.
func (c *Client) ListIssues(ctx context.Context, owner, repo string) ([]*github.Issue, error) {
	issues, err := listAll(ctx, c, "list issues", listPageSize, func(opts github.ListOptions) ([]*github.Issue, *github.Response, error) {
		return c.gh.Issues.ListByRepo(ctx, owner, repo, &github.IssueListByRepoOptions{
			State:       "all",
			ListOptions: opts,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for %s/%s: %w", owner, repo, err)
	}
	return issues, nil
}

// ListWorkflowRuns lists all workflow runs for a repository
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo string) ([]*github.WorkflowRun, error) {
	runs, err := listAll(ctx, c, "list workflow runs", runsPageSize, func(opts github.ListOptions) ([]*github.WorkflowRun, *github.Response, error) {
		wr, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, &github.ListWorkflowRunsOptions{
			ListOptions: opts,
		})
		if err != nil {
			return nil, resp, err
		}
		return wr.WorkflowRuns, resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow runs for %s/%s: %w", owner, repo, err)
	}
	return runs, nil
}
