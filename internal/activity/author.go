package activity

import (
	"fmt"
	"strings"

	"github.com/spiffcs/boardsync/internal/model"
)

// AuthorMatcher decides whether a committed event belongs to the issue author.
type AuthorMatcher func(e model.TimelineEvent, authorLogin string) bool

// Author match strategies accepted in configuration.
const (
	MatchByDisplayName  = "display-name"
	MatchByNoreplyEmail = "noreply-email"
)

const noreplyDomain = "@users.noreply.github.com"

// MatchDisplayName compares the git committer name with the author's login.
// The two come from different namespaces, so genuine self-commits often fail
// to match; kept as the default because existing boards depend on it.
func MatchDisplayName(e model.TimelineEvent, authorLogin string) bool {
	return e.CommitterName != "" && e.CommitterName == authorLogin
}

// MatchNoreplyEmail matches when the committer or commit author used the
// author's GitHub noreply address, either "<login>@users.noreply.github.com"
// or "<id>+<login>@users.noreply.github.com".
func MatchNoreplyEmail(e model.TimelineEvent, authorLogin string) bool {
	login := strings.ToLower(authorLogin)
	if login == "" {
		return false
	}
	return noreplyLogin(e.CommitterEmail) == login || noreplyLogin(e.AuthorEmail) == login
}

// noreplyLogin extracts the lowercased login from a noreply address,
// or "" for any other address.
func noreplyLogin(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	local, ok := strings.CutSuffix(email, noreplyDomain)
	if !ok || local == "" {
		return ""
	}
	if _, login, found := strings.Cut(local, "+"); found {
		return login
	}
	return local
}

// MatcherFor returns the matcher for a configured strategy name.
// An empty name selects the display-name strategy.
func MatcherFor(name string) (AuthorMatcher, error) {
	switch name {
	case "", MatchByDisplayName:
		return MatchDisplayName, nil
	case MatchByNoreplyEmail:
		return MatchNoreplyEmail, nil
	default:
		return nil, fmt.Errorf("unknown author match strategy %q (use %s or %s)", name, MatchByDisplayName, MatchByNoreplyEmail)
	}
}
