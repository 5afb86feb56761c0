package ghclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spiffcs/boardsync/internal/constants"
	"github.com/spiffcs/boardsync/internal/log"
	"github.com/spiffcs/boardsync/internal/model"
)

// timelineEvent is the subset of a timeline entry boardsync reads. The
// timeline mixes event shapes, so every field is optional.
type timelineEvent struct {
	Event       string        `json:"event"`
	CreatedAt   *time.Time    `json:"created_at"`
	SubmittedAt *time.Time    `json:"submitted_at"`
	Actor       *timelineUser `json:"actor"`
	User        *timelineUser `json:"user"`
	Committer   *gitIdentity  `json:"committer"`
	Author      *gitIdentity  `json:"author"`
}

type timelineUser struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

type gitIdentity struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Date  *time.Time `json:"date"`
}

// Timeline fetches every page of the timeline at timelineURL, oldest first.
func (c *Client) Timeline(ctx context.Context, timelineURL string) ([]model.TimelineEvent, error) {
	var events []model.TimelineEvent

	page := 1
	for {
		u, err := pageURL(timelineURL, page)
		if err != nil {
			return nil, err
		}

		req, err := c.client.NewRequest("GET", u, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create timeline request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")

		var raw []timelineEvent
		resp, err := c.client.Do(ctx, req, &raw)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch timeline page %d: %w", page, err)
		}

		for _, e := range raw {
			events = append(events, toTimelineEvent(e))
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	log.Trace("fetched timeline", "url", timelineURL, "events", len(events))
	return events, nil
}

func pageURL(rawURL string, page int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid timeline URL %q: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("per_page", strconv.Itoa(constants.TimelinePageSize))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func toTimelineEvent(e timelineEvent) model.TimelineEvent {
	out := model.TimelineEvent{Kind: model.EventKind(e.Event)}

	switch out.Kind {
	case model.EventCommitted:
		if e.Committer != nil {
			out.CommitterName = e.Committer.Name
			out.CommitterEmail = e.Committer.Email
			out.At = deref(e.Committer.Date)
		}
		if e.Author != nil {
			out.AuthorEmail = e.Author.Email
			if out.At.IsZero() {
				out.At = deref(e.Author.Date)
			}
		}
		return out
	case model.EventReviewed:
		out.At = deref(e.SubmittedAt)
	default:
		out.At = deref(e.CreatedAt)
	}

	// Comments carry both actor and user; reviews only user.
	who := e.Actor
	if who == nil {
		who = e.User
	}
	if who != nil {
		out.Actor = who.Login
		out.ActorIsBot = who.Type == "Bot" || model.IsBotLogin(who.Login)
	}
	return out
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
