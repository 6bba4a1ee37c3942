package api

import (
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) github.Timestamp {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return github.Timestamp{Time: t}
}

func tsp(s string) *github.Timestamp {
	v := ts(s)
	return &v
}

func TestConvertCommit(t *testing.T) {
	entry := &github.RepositoryCommit{
		SHA:    github.String("abc123"),
		Author: &github.User{Login: github.String("alice")},
		Commit: &github.Commit{
			Message:   github.String("fix the thing"),
			Author:    &github.CommitAuthor{Name: github.String("Alice A")},
			Committer: &github.CommitAuthor{Date: tsp("2024-03-01T10:00:00Z")},
		},
	}
	detail := &github.RepositoryCommit{
		Stats: &github.CommitStats{Additions: github.Int(12), Deletions: github.Int(3)},
		Files: []*github.CommitFile{{Filename: github.String("a.go")}, {Filename: github.String("b.go")}},
	}

	c := ConvertCommit("acme", "api", entry, detail)

	assert.Equal(t, "abc123", c.SHA)
	assert.Equal(t, "alice", c.AuthorLogin)
	assert.Equal(t, "Alice A", c.AuthorName)
	assert.Equal(t, "fix the thing", c.Message)
	assert.Equal(t, ts("2024-03-01T10:00:00Z").Time, c.CommittedAt)
	assert.Equal(t, 12, c.Additions)
	assert.Equal(t, 3, c.Deletions)
	assert.Equal(t, 2, c.FilesChanged)
}

func TestConvertCommit_MissingStatsAndAuthor(t *testing.T) {
	entry := &github.RepositoryCommit{
		SHA: github.String("def456"),
		// no Author: commit not linked to a GitHub account
		Commit: &github.Commit{
			Message:   github.String("drive-by"),
			Committer: &github.CommitAuthor{Date: tsp("2024-03-02T10:00:00Z")},
		},
	}
	// detail without stats or files blocks
	detail := &github.RepositoryCommit{}

	c := ConvertCommit("acme", "api", entry, detail)

	assert.Empty(t, c.AuthorLogin)
	assert.Equal(t, 0, c.Additions)
	assert.Equal(t, 0, c.Deletions)
	assert.Equal(t, 0, c.FilesChanged)
}

func TestConvertPullRequest(t *testing.T) {
	pr := &github.PullRequest{
		ID:        github.Int64(900100),
		Number:    github.Int(7),
		User:      &github.User{Login: github.String("bob")},
		Title:     github.String("add feature"),
		State:     github.String("closed"),
		CreatedAt: tsp("2024-02-01T09:00:00Z"),
		MergedAt:  tsp("2024-02-02T09:00:00Z"),
		ClosedAt:  tsp("2024-02-02T09:00:00Z"),
	}
	detail := &github.PullRequest{
		Additions:    github.Int(100),
		Deletions:    github.Int(40),
		ChangedFiles: github.Int(5),
	}

	p := ConvertPullRequest("acme", "api", pr, detail)

	assert.Equal(t, int64(900100), p.ID)
	assert.Equal(t, 7, p.Number)
	assert.Equal(t, "bob", p.AuthorLogin)
	require.NotNil(t, p.MergedAt)
	assert.Equal(t, ts("2024-02-02T09:00:00Z").Time, *p.MergedAt)
	assert.Equal(t, 100, p.Additions)
	assert.Equal(t, 5, p.ChangedFiles)
}

func TestConvertPullRequest_OpenPR(t *testing.T) {
	pr := &github.PullRequest{
		ID:        github.Int64(900101),
		Number:    github.Int(8),
		State:     github.String("open"),
		CreatedAt: tsp("2024-02-03T09:00:00Z"),
		// no MergedAt or ClosedAt, no User
	}

	p := ConvertPullRequest("acme", "api", pr, &github.PullRequest{})

	assert.Nil(t, p.MergedAt)
	assert.Nil(t, p.ClosedAt)
	assert.Empty(t, p.AuthorLogin)
	assert.Equal(t, 0, p.Additions)
}

func TestConvertReview_NoSubmittedAt(t *testing.T) {
	review := &github.PullRequestReview{
		ID:    github.Int64(5001),
		User:  &github.User{Login: github.String("carol")},
		State: github.String("PENDING"),
		Body:  github.String("looking"),
	}

	rv := ConvertReview("acme", "api", 7, review)

	assert.Equal(t, int64(5001), rv.ID)
	assert.Equal(t, 7, rv.PRNumber)
	assert.Equal(t, "carol", rv.ReviewerLogin)
	assert.Nil(t, rv.SubmittedAt)
}

func TestConvertIssue_BugLabel(t *testing.T) {
	issue := &github.Issue{
		ID:        github.Int64(42),
		Number:    github.Int(11),
		User:      &github.User{Login: github.String("dave")},
		Title:     github.String("it crashes"),
		State:     github.String("open"),
		CreatedAt: tsp("2024-01-10T12:00:00Z"),
		Labels: []*github.Label{
			{Name: github.String("Bug")},
			{Name: github.String("P1")},
		},
	}

	is := ConvertIssue("acme", "api", issue)
	assert.True(t, is.IsBug)

	issue.Labels = []*github.Label{
		{Name: github.String("P1")},
		{Name: github.String("enhancement")},
	}
	assert.False(t, ConvertIssue("acme", "api", issue).IsBug)
}

func TestConvertWorkflowRun(t *testing.T) {
	tests := []struct {
		name       string
		workflow   string
		conclusion string
		wantEnv    string
		wantStatus string
	}{
		{"deploy workflow", "Deploy to K8s", "success", "prod", "success"},
		{"prod workflow", "prod-release", "failure", "prod", "failure"},
		{"ci workflow", "CI", "success", "unknown", "success"},
		{"missing conclusion", "CI", "", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &github.WorkflowRun{
				ID:        github.Int64(777),
				Name:      github.String(tt.workflow),
				UpdatedAt: tsp("2024-04-01T08:00:00Z"),
			}
			if tt.conclusion != "" {
				run.Conclusion = github.String(tt.conclusion)
			}

			d := ConvertWorkflowRun("acme", "api", run)

			assert.Equal(t, int64(777), d.ExternalID)
			assert.Equal(t, tt.wantEnv, d.Environment)
			assert.Equal(t, tt.wantStatus, d.Status)
			assert.Equal(t, DeploymentSource, d.Source)
		})
	}
}
