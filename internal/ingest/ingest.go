package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog"

	"github.com/devpulse/ingest/internal/api"
	"github.com/devpulse/ingest/internal/models"
)

// Client is the slice of the GitHub API the ingester consumes
type Client interface {
	GetRepository(ctx context.Context, owner, name string) (*models.Repository, error)
	ListCommits(ctx context.Context, owner, repo string, since time.Time) ([]*github.RepositoryCommit, error)
	GetCommit(ctx context.Context, owner, repo, sha string) (*github.RepositoryCommit, error)
	ListPullRequests(ctx context.Context, owner, repo string) ([]*github.PullRequest, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	ListReviews(ctx context.Context, owner, repo string, number int) ([]*github.PullRequestReview, error)
	ListReviewComments(ctx context.Context, owner, repo string, number int) ([]*github.PullRequestComment, error)
	ListIssues(ctx context.Context, owner, repo string) ([]*github.Issue, error)
	ListWorkflowRuns(ctx context.Context, owner, repo string) ([]*github.WorkflowRun, error)
}

// Tx is one repository's write transaction
type Tx interface {
	UpsertRepository(ctx context.Context, repo *models.Repository) error
	UpsertCommit(ctx context.Context, c *models.Commit) error
	UpsertPullRequest(ctx context.Context, pr *models.PullRequest) error
	UpsertReview(ctx context.Context, review *models.Review) error
	UpsertReviewComment(ctx context.Context, comment *models.ReviewComment) error
	UpsertIssue(ctx context.Context, issue *models.Issue) error
	UpsertDeployment(ctx context.Context, d *models.Deployment) error
	Commit() error
	Rollback() error
}

// BeginTxFunc opens a new write transaction
type BeginTxFunc func(ctx context.Context) (Tx, error)

// Ingester pulls a repository's activity from GitHub and merges it into
// storage, one transaction per repository.
type Ingester struct {
	client Client
	begin  BeginTxFunc
	log    zerolog.Logger
}

// New creates a new ingester
func New(client Client, begin BeginTxFunc, log zerolog.Logger) *Ingester {
	return &Ingester{
		client: client,
		begin:  begin,
		log:    log,
	}
}

// Run ingests every configured repository in order. The first failure
// aborts the whole run; repositories committed before the failure stay
// committed.
func (ing *Ingester) Run(ctx context.Context, owner string, repos []string) error {
	for _, name := range repos {
		if err := ing.IngestRepository(ctx, owner, name); err != nil {
			return fmt.Errorf("failed to ingest repository %s/%s: %w", owner, name, err)
		}
		ing.log.Info().Str("repo", owner+"/"+name).Msg("done")
	}
	return nil
}

// IngestRepository ingests one repository inside a single transaction:
// metadata, then commits, pull requests (with reviews and review comments),
// issues, and workflow-run deployments, in that order.
func (ing *Ingester) IngestRepository(ctx context.Context, owner, name string) error {
	tx, err := ing.begin(ctx)
	if err != nil {
		return err
	}

	if err := ing.ingestRepository(ctx, tx, owner, name); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (ing *Ingester) ingestRepository(ctx context.Context, tx Tx, owner, name string) error {
	repo, err := ing.client.GetRepository(ctx, owner, name)
	if err != nil {
		return err
	}
	if err := tx.UpsertRepository(ctx, repo); err != nil {
		return err
	}

	if err := ing.ingestCommits(ctx, tx, owner, name); err != nil {
		return err
	}
	if err := ing.ingestPullRequests(ctx, tx, owner, name); err != nil {
		return err
	}
	if err := ing.ingestIssues(ctx, tx, owner, name); err != nil {
		return err
	}
	return ing.ingestDeployments(ctx, tx, owner, name)
}

// ingestCommits lists a repository's commits and fetches each commit's
// detail for the change stats the list endpoint does not supply.
func (ing *Ingester) ingestCommits(ctx context.Context, tx Tx, owner, name string) error {
	commits, err := ing.client.ListCommits(ctx, owner, name, time.Time{})
	if err != nil {
		return err
	}
	ing.log.Debug().Str("repo", owner+"/"+name).Int("count", len(commits)).Msg("fetched commits")

	for _, c := range commits {
		detail, err := ing.client.GetCommit(ctx, owner, name, c.GetSHA())
		if err != nil {
			return err
		}
		if err := tx.UpsertCommit(ctx, api.ConvertCommit(owner, name, c, detail)); err != nil {
			return err
		}
	}
	return nil
}

// ingestPullRequests lists a repository's pull requests; each one needs a
// detail fetch for change stats plus its reviews and review comments.
func (ing *Ingester) ingestPullRequests(ctx context.Context, tx Tx, owner, name string) error {
	prs, err := ing.client.ListPullRequests(ctx, owner, name)
	if err != nil {
		return err
	}
	ing.log.Debug().Str("repo", owner+"/"+name).Int("count", len(prs)).Msg("fetched pull requests")

	for _, pr := range prs {
		number := pr.GetNumber()

		detail, err := ing.client.GetPullRequest(ctx, owner, name, number)
		if err != nil {
			return err
		}
		if err := tx.UpsertPullRequest(ctx, api.ConvertPullRequest(owner, name, pr, detail)); err != nil {
			return err
		}

		reviews, err := ing.client.ListReviews(ctx, owner, name, number)
		if err != nil {
			return err
		}
		for _, review := range reviews {
			if err := tx.UpsertReview(ctx, api.ConvertReview(owner, name, number, review)); err != nil {
				return err
			}
		}

		comments, err := ing.client.ListReviewComments(ctx, owner, name, number)
		if err != nil {
			return err
		}
		for _, comment := range comments {
			if err := tx.UpsertReviewComment(ctx, api.ConvertReviewComment(owner, name, number, comment)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ingestIssues ingests a repository's issues. The issues endpoint also
// returns pull requests; those are skipped.
func (ing *Ingester) ingestIssues(ctx context.Context, tx Tx, owner, name string) error {
	issues, err := ing.client.ListIssues(ctx, owner, name)
	if err != nil {
		return err
	}

	saved := 0
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		if err := tx.UpsertIssue(ctx, api.ConvertIssue(owner, name, issue)); err != nil {
			return err
		}
		saved++
	}
	ing.log.Debug().Str("repo", owner+"/"+name).Int("count", saved).Msg("ingested issues")
	return nil
}

// ingestDeployments treats completed workflow runs as deployment events
func (ing *Ingester) ingestDeployments(ctx context.Context, tx Tx, owner, name string) error {
	runs, err := ing.client.ListWorkflowRuns(ctx, owner, name)
	if err != nil {
		return err
	}

	for _, run := range runs {
		if run.GetStatus() != "completed" {
			continue
		}
		if err := tx.UpsertDeployment(ctx, api.ConvertWorkflowRun(owner, name, run)); err != nil {
			return err
		}
	}
	return nil
}
