package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	gh "github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"githubtray/logger"
	"githubtray/models"
)

const (
	userAgent        = "githubtray"
	requestTimeout   = 30 * time.Second
	pageSize         = 100
	maxFollowerPages = 10
	repoAffiliation  = "owner,collaborator,organization_member"
)

// Client talks to the REST and GraphQL APIs. API clients are built lazily
// per token so a token change in settings takes effect on the next call.
type Client struct {
	baseURL   *url.URL
	transport http.RoundTripper

	mu      sync.Mutex
	token   string
	rest    *gh.Client
	graphql *githubv4.Client
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points both APIs at an enterprise or test server. The GraphQL
// endpoint is "<base>graphql".
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

// WithTransport sets the innermost round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// NewClient creates a client. Secondary rate limits are waited out
// transparently for up to an hour per request.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	waiter, err := github_ratelimit.NewRateLimitWaiter(c.transport, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	c.transport = waiter

	base := "https://api.github.com/"
	if c.baseURL != nil {
		base = c.baseURL.String()
	}
	logger.Info("Initializing GitHub client", zap.String("base_url", base))
	return c, nil
}

func (c *Client) clients(token string) (*gh.Client, *githubv4.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rest != nil && c.token == token {
		return c.rest, c.graphql
	}

	httpClient := &http.Client{
		Timeout: requestTimeout,
		Transport: &oauth2.Transport{
			Base:   c.transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}

	rest := gh.NewClient(httpClient)
	rest.UserAgent = userAgent
	var graphql *githubv4.Client
	if c.baseURL != nil {
		rest.BaseURL = c.baseURL
		graphql = githubv4.NewEnterpriseClient(c.baseURL.String()+"graphql", httpClient)
	} else {
		graphql = githubv4.NewClient(httpClient)
	}

	c.token, c.rest, c.graphql = token, rest, graphql
	return rest, graphql
}

// logRate records the remaining primary rate limit budget
func logRate(resp *gh.Response, call string) {
	if resp == nil {
		return
	}
	logger.Debug("GitHub API call",
		zap.String("call", call),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("rate_limit", resp.Rate.Limit),
		zap.Int("rate_remaining", resp.Rate.Remaining),
		zap.Time("rate_reset", resp.Rate.Reset.Time))
}

// apiSort maps a local sort key onto what /user/repos understands; the
// result is re-sorted locally anyway.
func apiSort(key models.SortKey) string {
	switch key {
	case models.SortName:
		return "full_name"
	case models.SortCreated:
		return "created"
	case models.SortPushed:
		return "pushed"
	default:
		return "updated"
	}
}

// FetchRepositories lists repositories the user owns, collaborates on or can
// see through an organization.
func (c *Client) FetchRepositories(ctx context.Context, token, username string, prefs models.SortPrefs) ([]models.Repository, error) {
	rest, _ := c.clients(token)
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Affiliation: repoAffiliation,
		Sort:        apiSort(prefs.Key),
		Direction:   string(prefs.Order),
		ListOptions: gh.ListOptions{PerPage: pageSize},
	}

	repos, resp, err := rest.Repositories.ListByAuthenticatedUser(ctx, opts)
	logRate(resp, "repositories")
	if err != nil {
		logger.Error("Failed to fetch repositories", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to fetch repositories: %w", err)
	}

	out := make([]models.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, toRepository(r))
	}
	logger.Debug("Fetched repositories", zap.String("username", username), zap.Int("count", len(out)))
	return out, nil
}

type profileQuery struct {
	User struct {
		AvatarURL string
		Followers struct {
			TotalCount int
		}
		Repositories struct {
			TotalCount int
		} `graphql:"repositories(privacy: PUBLIC)"`
	} `graphql:"user(login: $login)"`
}

// FetchUserProfile reads avatar and headline counts through GraphQL.
func (c *Client) FetchUserProfile(ctx context.Context, token, username string) (*models.Profile, error) {
	_, graphql := c.clients(token)
	var q profileQuery
	vars := map[string]interface{}{"login": githubv4.String(username)}
	if err := graphql.Query(ctx, &q, vars); err != nil {
		logger.Error("Failed to fetch user profile", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	return &models.Profile{
		AvatarURL:   q.User.AvatarURL,
		Followers:   q.User.Followers.TotalCount,
		PublicRepos: q.User.Repositories.TotalCount,
	}, nil
}

// FetchFollowers returns every follower of the authenticated user.
func (c *Client) FetchFollowers(ctx context.Context, token string) ([]models.Follower, error) {
	rest, _ := c.clients(token)
	opts := &gh.ListOptions{PerPage: pageSize}
	out := []models.Follower{}

	for page := 0; page < maxFollowerPages; page++ {
		users, resp, err := rest.Users.ListFollowers(ctx, "", opts)
		logRate(resp, "followers")
		if err != nil {
			logger.Error("Failed to fetch followers", zap.Error(err))
			return nil, fmt.Errorf("failed to fetch followers: %w", err)
		}
		for _, u := range users {
			out = append(out, models.Follower{
				ID:        u.GetID(),
				Login:     u.GetLogin(),
				AvatarURL: u.GetAvatarURL(),
				HTMLURL:   u.GetHTMLURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// FetchWorkflowRuns returns the most recent runs of a repository.
func (c *Client) FetchWorkflowRuns(ctx context.Context, token, owner, repo string, maxCount int) ([]models.WorkflowRun, error) {
	rest, _ := c.clients(token)
	opts := &gh.ListWorkflowRunsOptions{ListOptions: gh.ListOptions{PerPage: maxCount}}

	runs, resp, err := rest.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
	logRate(resp, "workflow_runs")
	if err != nil {
		logger.Error("Failed to fetch workflow runs",
			zap.Error(err),
			zap.String("owner", owner),
			zap.String("repo", repo))
		return nil, fmt.Errorf("failed to fetch workflow runs for %s/%s: %w", owner, repo, err)
	}

	fullName := owner + "/" + repo
	out := make([]models.WorkflowRun, 0, len(runs.WorkflowRuns))
	for _, r := range runs.WorkflowRuns {
		out = append(out, toWorkflowRun(r, fullName))
	}
	return out, nil
}

// FetchIssues returns open issues, most recently updated first. Pull
// requests are filtered out.
func (c *Client) FetchIssues(ctx context.Context, token, owner, repo string, maxCount int) ([]models.Issue, error) {
	rest, _ := c.clients(token)
	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: maxCount},
	}

	issues, resp, err := rest.Issues.ListByRepo(ctx, owner, repo, opts)
	logRate(resp, "issues")
	if err != nil {
		logger.Error("Failed to fetch issues",
			zap.Error(err),
			zap.String("owner", owner),
			zap.String("repo", repo))
		return nil, fmt.Errorf("failed to fetch issues for %s/%s: %w", owner, repo, err)
	}

	out := make([]models.Issue, 0, len(issues))
	for _, i := range issues {
		if i.IsPullRequest() {
			continue
		}
		out = append(out, models.Issue{
			Number:    i.GetNumber(),
			Title:     i.GetTitle(),
			Author:    i.GetUser().GetLogin(),
			HTMLURL:   i.GetHTMLURL(),
			UpdatedAt: i.GetUpdatedAt().Time,
		})
	}
	return out, nil
}

// FetchNotifications returns the notification feed.
func (c *Client) FetchNotifications(ctx context.Context, token string, maxCount int) ([]models.Notification, error) {
	rest, _ := c.clients(token)
	opts := &gh.NotificationListOptions{ListOptions: gh.ListOptions{PerPage: maxCount}}

	items, resp, err := rest.Activity.ListNotifications(ctx, opts)
	logRate(resp, "notifications")
	if err != nil {
		logger.Error("Failed to fetch notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	out := make([]models.Notification, 0, len(items))
	for _, n := range items {
		out = append(out, toNotification(n))
	}
	return out, nil
}

// MarkNotificationRead marks one feed thread as read. GitHub answers 205.
func (c *Client) MarkNotificationRead(ctx context.Context, token, notificationID string) error {
	rest, _ := c.clients(token)
	resp, err := rest.Activity.MarkThreadRead(ctx, notificationID)
	logRate(resp, "mark_read")
	if err != nil {
		logger.Error("Failed to mark notification read", zap.Error(err), zap.String("id", notificationID))
		return fmt.Errorf("failed to mark notification %s read: %w", notificationID, err)
	}
	return nil
}

// RerunWorkflow re-runs the failed jobs of a run. GitHub answers 201.
func (c *Client) RerunWorkflow(ctx context.Context, token, owner, repo string, runID int64) error {
	rest, _ := c.clients(token)
	resp, err := rest.Actions.RerunFailedJobsByID(ctx, owner, repo, runID)
	logRate(resp, "rerun")
	if err != nil {
		logger.Error("Failed to rerun workflow",
			zap.Error(err),
			zap.String("owner", owner),
			zap.String("repo", repo),
			zap.Int64("run_id", runID))
		return fmt.Errorf("failed to rerun workflow %d for %s/%s: %w", runID, owner, repo, err)
	}
	logger.Info("Workflow rerun requested", zap.String("repo", owner+"/"+repo), zap.Int64("run_id", runID))
	return nil
}
