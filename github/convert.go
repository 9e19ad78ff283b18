package github

import (
	"strings"

	gh "github.com/google/go-github/v62/github"

	"githubtray/models"
)

func toRepository(r *gh.Repository) models.Repository {
	return models.Repository{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		Stars:       r.GetStargazersCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		Forks:       r.GetForksCount(),
		IsFork:      r.GetFork(),
		ParentURL:   r.GetParent().GetHTMLURL(),
		Language:    r.GetLanguage(),
		HTMLURL:     r.GetHTMLURL(),
		CreatedAt:   r.GetCreatedAt().Time,
		UpdatedAt:   r.GetUpdatedAt().Time,
		PushedAt:    r.GetPushedAt().Time,
	}
}

func toWorkflowRun(r *gh.WorkflowRun, fullName string) models.WorkflowRun {
	run := models.WorkflowRun{
		ID:                 r.GetID(),
		Name:               r.GetName(),
		Status:             models.RunStatus(r.GetStatus()),
		Conclusion:         models.RunConclusion(r.GetConclusion()),
		HeadBranch:         r.GetHeadBranch(),
		RunAttempt:         r.GetRunAttempt(),
		UpdatedAt:          r.GetUpdatedAt().Time,
		RepositoryFullName: fullName,
		HTMLURL:            r.GetHTMLURL(),
	}
	if r.RunStartedAt != nil {
		started := r.RunStartedAt.Time
		run.StartedAt = &started
	}
	return run
}

func toNotification(n *gh.Notification) models.Notification {
	url := htmlURL(n.GetSubject().GetURL())
	if url == "" {
		url = n.GetRepository().GetHTMLURL()
	}
	return models.Notification{
		ID:                 n.GetID(),
		Reason:             n.GetReason(),
		SubjectType:        n.GetSubject().GetType(),
		Title:              n.GetSubject().GetTitle(),
		RepositoryFullName: n.GetRepository().GetFullName(),
		URL:                url,
		Unread:             n.GetUnread(),
		UpdatedAt:          n.GetUpdatedAt().Time,
	}
}

// htmlURL turns an API subject URL into the page a browser should open.
func htmlURL(apiURL string) string {
	if apiURL == "" {
		return ""
	}
	u := strings.Replace(apiURL, "://api.github.com/repos/", "://github.com/", 1)
	u = strings.Replace(u, "/pulls/", "/pull/", 1)
	return u
}
