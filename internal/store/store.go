package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/devpulse/ingest/internal/models"
)

// Store represents the database connection
type Store struct {
	db *sql.DB
}

// New creates a new database connection
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Begin opens a transaction. Each repository's ingestion runs inside one
// transaction so a partial failure leaves nothing behind.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx wraps one ingestion transaction. All writes are single-statement
// upserts keyed on the entity's remote identity, so repeated ingestion of
// the same record overwrites mutable fields instead of duplicating rows.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// UpsertRepository saves a repository, keyed by (owner, name)
func (t *Tx) UpsertRepository(ctx context.Context, repo *models.Repository) error {
	query := `
	INSERT INTO repos (owner, name, default_branch)
	VALUES ($1, $2, $3)
	ON CONFLICT (owner, name) DO UPDATE SET
		default_branch = excluded.default_branch
	`

	_, err := t.tx.ExecContext(ctx, query, repo.Owner, repo.Name, repo.DefaultBranch)
	if err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}

	return nil
}

// UpsertCommit saves a commit, keyed by sha
func (t *Tx) UpsertCommit(ctx context.Context, c *models.Commit) error {
	query := `
	INSERT INTO commits (sha, repo_owner, repo_name, author_login, author_name, committed_at,
	                     additions, deletions, files_changed, message)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (sha) DO UPDATE SET
		author_login = excluded.author_login,
		author_name = excluded.author_name,
		committed_at = excluded.committed_at,
		additions = excluded.additions,
		deletions = excluded.deletions,
		files_changed = excluded.files_changed,
		message = excluded.message
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		c.SHA,
		c.RepoOwner,
		c.RepoName,
		c.AuthorLogin,
		c.AuthorName,
		c.CommittedAt,
		c.Additions,
		c.Deletions,
		c.FilesChanged,
		c.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to save commit: %w", err)
	}

	return nil
}

// UpsertPullRequest saves a pull request, keyed by its global id
func (t *Tx) UpsertPullRequest(ctx context.Context, pr *models.PullRequest) error {
	query := `
	INSERT INTO pull_requests (id, repo_owner, repo_name, number, author_login, title,
	                           created_at, merged_at, closed_at, state,
	                           additions, deletions, changed_files)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		author_login = excluded.author_login,
		title = excluded.title,
		created_at = excluded.created_at,
		merged_at = excluded.merged_at,
		closed_at = excluded.closed_at,
		state = excluded.state,
		additions = excluded.additions,
		deletions = excluded.deletions,
		changed_files = excluded.changed_files
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		pr.ID,
		pr.RepoOwner,
		pr.RepoName,
		pr.Number,
		pr.AuthorLogin,
		pr.Title,
		pr.CreatedAt,
		pr.MergedAt,
		pr.ClosedAt,
		pr.State,
		pr.Additions,
		pr.Deletions,
		pr.ChangedFiles,
	)
	if err != nil {
		return fmt.Errorf("failed to save pull request: %w", err)
	}

	return nil
}

// UpsertReview saves a pull request review, keyed by its global id
func (t *Tx) UpsertReview(ctx context.Context, review *models.Review) error {
	query := `
	INSERT INTO pr_reviews (id, repo_owner, repo_name, pr_number, reviewer_login, state, submitted_at, body)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		reviewer_login = excluded.reviewer_login,
		state = excluded.state,
		submitted_at = excluded.submitted_at,
		body = excluded.body
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		review.ID,
		review.RepoOwner,
		review.RepoName,
		review.PRNumber,
		review.ReviewerLogin,
		review.State,
		review.SubmittedAt,
		review.Body,
	)
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	return nil
}

// UpsertReviewComment saves a review comment, keyed by its global id
func (t *Tx) UpsertReviewComment(ctx context.Context, comment *models.ReviewComment) error {
	query := `
	INSERT INTO pr_review_comments (id, repo_owner, repo_name, pr_number, commenter_login, created_at, body)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		commenter_login = excluded.commenter_login,
		created_at = excluded.created_at,
		body = excluded.body
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		comment.ID,
		comment.RepoOwner,
		comment.RepoName,
		comment.PRNumber,
		comment.CommenterLogin,
		comment.CreatedAt,
		comment.Body,
	)
	if err != nil {
		return fmt.Errorf("failed to save review comment: %w", err)
	}

	return nil
}

// UpsertIssue saves an issue, keyed by its global id
func (t *Tx) UpsertIssue(ctx context.Context, issue *models.Issue) error {
	query := `
	INSERT INTO issues (id, repo_owner, repo_name, number, author_login, title, created_at, closed_at, state, is_bug)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		created_at = excluded.created_at,
		closed_at = excluded.closed_at,
		state = excluded.state,
		is_bug = excluded.is_bug
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		issue.ID,
		issue.RepoOwner,
		issue.RepoName,
		issue.Number,
		issue.AuthorLogin,
		issue.Title,
		issue.CreatedAt,
		issue.ClosedAt,
		issue.State,
		issue.IsBug,
	)
	if err != nil {
		return fmt.Errorf("failed to save issue: %w", err)
	}

	return nil
}

// UpsertDeployment saves a deployment, keyed by the workflow run id it was
// derived from. Re-ingesting the same run updates the row in place.
func (t *Tx) UpsertDeployment(ctx context.Context, d *models.Deployment) error {
	query := `
	INSERT INTO deployments (external_id, repo_owner, repo_name, deployed_at, environment, status, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (external_id) DO UPDATE SET
		deployed_at = excluded.deployed_at,
		environment = excluded.environment,
		status = excluded.status
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		d.ExternalID,
		d.RepoOwner,
		d.RepoName,
		d.DeployedAt,
		d.Environment,
		d.Status,
		d.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to save deployment: %w", err)
	}

	return nil
}
