package scheduler

import (
	"fmt"
	"strings"

	"githubtray/diff"
)

// Notification titles.
const (
	TitleStars             = "New Stars!"
	TitleIssues            = "New Issues Opened"
	TitleForks             = "New Forks Created"
	TitleFollowers         = "New Followers"
	TitleWorkflowStarted   = "GitHub Actions: Workflow Started"
	TitleWorkflowSucceeded = "GitHub Actions: Workflow Succeeded"
	TitleWorkflowFailed    = "GitHub Actions: Workflow Failed"
	TitleWorkflowCancelled = "GitHub Actions: Workflow Cancelled"
)

// Message is one desktop notification.
type Message struct {
	Title string
	Body  string
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

func deltaLines(deltas []diff.Delta, line func(d diff.Delta) string) string {
	lines := make([]string, 0, len(deltas))
	for _, d := range deltas {
		lines = append(lines, line(d))
	}
	return strings.Join(lines, "\n")
}

// RepositoryMessages renders the counter and follower categories of cs, one
// message per non-empty category.
func RepositoryMessages(cs *diff.ChangeSet) []Message {
	if cs == nil {
		return nil
	}
	var out []Message

	if cs.TotalNewStars > 0 && len(cs.StarsGained) > 0 {
		out = append(out, Message{
			Title: TitleStars,
			Body: deltaLines(cs.StarsGained, func(d diff.Delta) string {
				return fmt.Sprintf("%s +%d ⭐", d.RepoName, d.Delta)
			}),
		})
	}
	if len(cs.NewIssues) > 0 {
		out = append(out, Message{
			Title: TitleIssues,
			Body: deltaLines(cs.NewIssues, func(d diff.Delta) string {
				return fmt.Sprintf("%s +%d %s", d.RepoName, d.Delta, plural(d.Delta, "issue"))
			}),
		})
	}
	if len(cs.NewForks) > 0 {
		out = append(out, Message{
			Title: TitleForks,
			Body: deltaLines(cs.NewForks, func(d diff.Delta) string {
				return fmt.Sprintf("%s +%d %s", d.RepoName, d.Delta, plural(d.Delta, "fork"))
			}),
		})
	}
	if n := len(cs.NewFollowers); n > 0 {
		body := fmt.Sprintf("+%d followers", n)
		if n == 1 {
			body = cs.NewFollowers[0].Login
		}
		out = append(out, Message{Title: TitleFollowers, Body: body})
	}
	return out
}

// WorkflowMessage renders a single run transition.
func WorkflowMessage(t diff.Transition) Message {
	head := fmt.Sprintf("%s • %s", t.RepoName, t.Run.Name)
	switch t.Kind {
	case diff.TransitionStarted:
		return Message{Title: TitleWorkflowStarted, Body: head + "\n" + t.Run.HeadBranch}
	case diff.TransitionSucceeded:
		body := head
		if d := t.Run.Duration(); d != "" {
			body += "\n" + d
		}
		return Message{Title: TitleWorkflowSucceeded, Body: body}
	case diff.TransitionFailed:
		return Message{Title: TitleWorkflowFailed, Body: head + "\n" + t.Run.HeadBranch}
	default:
		return Message{Title: TitleWorkflowCancelled, Body: head}
	}
}
