package httpapi

import (
	"context"
	"net/http"

	"tessa.org/internal/httperr"
	"tessa.org/internal/session"
)

// Decision is a definitive authorization answer. An undetermined check (a
// provider outage, say) is neither value; predicates return an error for it
// and the failure propagates instead of masquerading as a denial.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// predicate evaluates one capability against the caller's claims.
type predicate func(ctx context.Context, claims session.Claims) (Decision, error)

// membershipChecker is the slice of the identity provider that authorization
// needs.
type membershipChecker interface {
	IsOrgMember(ctx context.Context, accessToken, username, org string) (bool, error)
	IsTeamMember(ctx context.Context, accessToken, username, org, team string) (bool, error)
	IsRepoCollaborator(ctx context.Context, accessToken, username, repo string) (bool, error)
}

// requireAll guards a handler with predicates, evaluated in order. The first
// Deny ends the request with the uniform unauthorized error; a predicate
// error propagates untouched.
func requireAll(h handlerFunc, preds ...predicate) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var claims session.Claims
		if sess, ok := session.FromContext(r.Context()); ok {
			claims = sess.Claims
		}
		for _, pred := range preds {
			decision, err := pred(r.Context(), claims)
			if err != nil {
				return err
			}
			if decision != Allow {
				return httperr.Unauthorized()
			}
		}
		return h(w, r)
	}
}

// isAuthenticated allows any signed-in caller. It never touches the network.
func isAuthenticated() predicate {
	return func(ctx context.Context, claims session.Claims) (Decision, error) {
		if claims.UserID != 0 {
			return Allow, nil
		}
		return Deny, nil
	}
}

// boolToDecision maps a definitive membership answer onto a Decision.
func boolToDecision(member bool) Decision {
	if member {
		return Allow
	}
	return Deny
}

// isMember allows public members of the organization. Without a username
// claim it denies outright, with no provider call.
func (a *API) isMember() predicate {
	return func(ctx context.Context, claims session.Claims) (Decision, error) {
		if claims.GithubUsername == "" {
			return Deny, nil
		}
		member, err := a.provider.IsOrgMember(ctx, claims.AccessToken, claims.GithubUsername, a.cfg.GithubAuthzOrg)
		if err != nil {
			return Deny, err
		}
		return boolToDecision(member), nil
	}
}

// isAdmin allows active members of the configured admins team.
func (a *API) isAdmin() predicate {
	return a.teamMember(a.cfg.GithubAdminsTeam)
}

// isAuthor allows active members of the authors team, or collaborators on
// the configured content repository when one is set.
func (a *API) isAuthor() predicate {
	team := a.teamMember(a.cfg.GithubAuthorsTeam)
	return func(ctx context.Context, claims session.Claims) (Decision, error) {
		decision, err := team(ctx, claims)
		if err != nil || decision == Allow {
			return decision, err
		}
		if a.cfg.GithubCollabRepo == "" {
			return Deny, nil
		}
		return a.isCollaborator(a.cfg.GithubCollabRepo)(ctx, claims)
	}
}

// isCollaborator allows collaborators on the given "owner/name" repository.
func (a *API) isCollaborator(repo string) predicate {
	return func(ctx context.Context, claims session.Claims) (Decision, error) {
		if claims.GithubUsername == "" {
			return Deny, nil
		}
		member, err := a.provider.IsRepoCollaborator(ctx, claims.AccessToken, claims.GithubUsername, repo)
		if err != nil {
			return Deny, err
		}
		return boolToDecision(member), nil
	}
}

func (a *API) teamMember(team string) predicate {
	return func(ctx context.Context, claims session.Claims) (Decision, error) {
		if claims.GithubUsername == "" {
			return Deny, nil
		}
		member, err := a.provider.IsTeamMember(ctx, claims.AccessToken, claims.GithubUsername, a.cfg.GithubAuthzOrg, team)
		if err != nil {
			return Deny, err
		}
		return boolToDecision(member), nil
	}
}
