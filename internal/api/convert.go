package api

import (
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/devpulse/ingest/internal/models"
)

// DeploymentSource marks deployment rows derived from workflow runs
const DeploymentSource = "github_actions"

// ConvertCommit converts a GitHub commit to our model. The list entry
// carries identity, author and message; the detail response carries the
// change stats. A missing stats or files block normalizes to zero counts,
// and a missing author (commits not linked to an account) to an empty login.
func ConvertCommit(owner, repo string, commit, detail *github.RepositoryCommit) *models.Commit {
	c := &models.Commit{
		SHA:         commit.GetSHA(),
		RepoOwner:   owner,
		RepoName:    repo,
		AuthorLogin: commit.GetAuthor().GetLogin(),
		AuthorName:  commit.GetCommit().GetAuthor().GetName(),
		CommittedAt: commit.GetCommit().GetCommitter().GetDate().Time,
		Message:     commit.GetCommit().GetMessage(),
	}

	if detail != nil {
		c.Additions = detail.GetStats().GetAdditions()
		c.Deletions = detail.GetStats().GetDeletions()
		c.FilesChanged = len(detail.Files)
	}

	return c
}

// ConvertPullRequest converts a GitHub pull request to our model. The
// global numeric id is the identity; the per-repo number is kept for
// joining reviews and comments. Change stats come from the detail
// response and default to zero when absent.
func ConvertPullRequest(owner, repo string, pr, detail *github.PullRequest) *models.PullRequest {
	p := &models.PullRequest{
		ID:          pr.GetID(),
		RepoOwner:   owner,
		RepoName:    repo,
		Number:      pr.GetNumber(),
		AuthorLogin: pr.GetUser().GetLogin(),
		Title:       pr.GetTitle(),
		CreatedAt:   pr.GetCreatedAt().Time,
		MergedAt:    nullableTime(pr.MergedAt),
		ClosedAt:    nullableTime(pr.ClosedAt),
		State:       pr.GetState(),
	}

	if detail != nil {
		p.Additions = detail.GetAdditions()
		p.Deletions = detail.GetDeletions()
		p.ChangedFiles = detail.GetChangedFiles()
	}

	return p
}

// ConvertReview converts a GitHub pull request review to our model
func ConvertReview(owner, repo string, prNumber int, review *github.PullRequestReview) *models.Review {
	return &models.Review{
		ID:            review.GetID(),
		RepoOwner:     owner,
		RepoName:      repo,
		PRNumber:      prNumber,
		ReviewerLogin: review.GetUser().GetLogin(),
		State:         review.GetState(),
		SubmittedAt:   nullableTime(review.SubmittedAt),
		Body:          review.GetBody(),
	}
}

// ConvertReviewComment converts a GitHub review comment to our model
func ConvertReviewComment(owner, repo string, prNumber int, comment *github.PullRequestComment) *models.ReviewComment {
	return &models.ReviewComment{
		ID:             comment.GetID(),
		RepoOwner:      owner,
		RepoName:       repo,
		PRNumber:       prNumber,
		CommenterLogin: comment.GetUser().GetLogin(),
		CreatedAt:      nullableTime(comment.CreatedAt),
		Body:           comment.GetBody(),
	}
}

// ConvertIssue converts a GitHub issue to our model. IsBug is derived: true
// iff any label's lowercase name contains "bug".
func ConvertIssue(owner, repo string, issue *github.Issue) *models.Issue {
	isBug := false
	for _, label := range issue.Labels {
		if strings.Contains(strings.ToLower(label.GetName()), "bug") {
			isBug = true
			break
		}
	}

	return &models.Issue{
		ID:          issue.GetID(),
		RepoOwner:   owner,
		RepoName:    repo,
		Number:      issue.GetNumber(),
		AuthorLogin: issue.GetUser().GetLogin(),
		Title:       issue.GetTitle(),
		CreatedAt:   issue.GetCreatedAt().Time,
		ClosedAt:    nullableTime(issue.ClosedAt),
		State:       issue.GetState(),
		IsBug:       isBug,
	}
}

// ConvertWorkflowRun converts a completed workflow run into a deployment
// record. The environment is inferred from the workflow name: "prod" when
// the name mentions prod or deploy, "unknown" otherwise.
func ConvertWorkflowRun(owner, repo string, run *github.WorkflowRun) *models.Deployment {
	name := strings.ToLower(run.GetName())
	env := "unknown"
	if strings.Contains(name, "prod") || strings.Contains(name, "deploy") {
		env = "prod"
	}

	status := run.GetConclusion()
	if status == "" {
		status = "unknown"
	}

	return &models.Deployment{
		ExternalID:  run.GetID(),
		RepoOwner:   owner,
		RepoName:    repo,
		DeployedAt:  run.GetUpdatedAt().Time,
		Environment: env,
		Status:      status,
		Source:      DeploymentSource,
	}
}

// nullableTime converts an optional API timestamp to a nullable time
func nullableTime(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
