package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"tessa.org/internal/config"
	"tessa.org/internal/session"
)

func TestAuthorRouteDeniesAnonymous(t *testing.T) {
	srv, provider, _, _ := newTestAPI(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/skills",
		strings.NewReader(`{"name":"Debugging","description":"Finding out why."}`))
	wantStatus(t, resp, http.StatusUnauthorized)
	if got := errorMessage(t, resp); got != "You are not allowed access to the requested resource." {
		t.Fatalf("message = %q", got)
	}
	if n := provider.callCount(); n != 0 {
		t.Fatalf("provider calls = %d, want 0", n)
	}
}

func TestMembershipDeniedWithoutUsernameClaimMakesNoProviderCalls(t *testing.T) {
	srv, provider, sessions, _ := newTestAPI(t)
	cookie := signIn(t, sessions, session.Claims{UserID: 7})

	resp := doRequest(t, http.MethodPost, srv.URL+"/skills",
		strings.NewReader(`{"name":"Debugging","description":"Finding out why."}`), cookie)
	wantStatus(t, resp, http.StatusUnauthorized)
	if n := provider.callCount(); n != 0 {
		t.Fatalf("provider calls = %d, want 0", n)
	}
}

func TestAuthorsTeamMemberMayCreateSkill(t *testing.T) {
	srv, provider, sessions, _ := newTestAPI(t)
	provider.teamMembers["authors/octocat"] = true
	cookie := signIn(t, sessions, session.Claims{UserID: 7, GithubUsername: "octocat", AccessToken: "gho_test"})

	resp := doRequest(t, http.MethodPost, srv.URL+"/skills",
		strings.NewReader(`{"name":"Debugging","description":"Finding out why."}`), cookie)
	wantStatus(t, resp, http.StatusCreated)
}

func TestCollaboratorMayCreateSkillWhenNotOnTeam(t *testing.T) {
	srv, provider, sessions, _ := newTestAPI(t)
	provider.collaborators["octocat"] = true
	cookie := signIn(t, sessions, session.Claims{UserID: 7, GithubUsername: "octocat", AccessToken: "gho_test"})

	resp := doRequest(t, http.MethodPost, srv.URL+"/skills",
		strings.NewReader(`{"name":"Debugging","description":"Finding out why."}`), cookie)
	wantStatus(t, resp, http.StatusCreated)
}

func TestMembershipLookupFailureIsServerErrorNotDenial(t *testing.T) {
	srv, provider, sessions, _ := newTestAPI(t)
	provider.membershipErr = errors.New("github: team membership lookup: unexpected status 502")
	cookie := signIn(t, sessions, session.Claims{UserID: 7, GithubUsername: "octocat", AccessToken: "gho_test"})

	resp := doRequest(t, http.MethodPost, srv.URL+"/skills",
		strings.NewReader(`{"name":"Debugging","description":"Finding out why."}`), cookie)
	wantStatus(t, resp, http.StatusInternalServerError)
	if got := errorMessage(t, resp); got != "An error occurred while processing the request." {
		t.Fatalf("message = %q", got)
	}
}

func TestAdminRouteRejectsAuthor(t *testing.T) {
	srv, provider, sessions, _ := newTestAPI(t)
	provider.teamMembers["authors/octocat"] = true
	cookie := signIn(t, sessions, session.Claims{UserID: 7, GithubUsername: "octocat", AccessToken: "gho_test"})

	resp := doRequest(t, http.MethodPost, srv.URL+"/facets",
		strings.NewReader(`{"name":"Craft","recommendation_prompt":"Try this.","sort_order":1}`), cookie)
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestAdminsTeamMemberMayCreateFacet(t *testing.T) {
	srv, provider, sessions, _ := newTestAPI(t)
	provider.teamMembers["admins/octocat"] = true
	cookie := signIn(t, sessions, session.Claims{UserID: 7, GithubUsername: "octocat", AccessToken: "gho_test"})

	resp := doRequest(t, http.MethodPost, srv.URL+"/facets",
		strings.NewReader(`{"name":"Craft","recommendation_prompt":"Try this.","sort_order":1}`), cookie)
	wantStatus(t, resp, http.StatusCreated)
}

func TestReflectionsRequireOnlyAuthentication(t *testing.T) {
	srv, provider, sessions, _ := newTestAPI(t)
	cookie := signIn(t, sessions, session.Claims{UserID: 7})

	resp := doRequest(t, http.MethodGet, srv.URL+"/reflections", nil, cookie)
	wantStatus(t, resp, http.StatusOK)
	if n := provider.callCount(); n != 0 {
		t.Fatalf("provider calls = %d, want 0", n)
	}
}

func TestOrgMembershipPredicate(t *testing.T) {
	provider := newFakeProvider()
	provider.orgMembers["octocat"] = true
	api := New(Deps{
		Config: &config.Config{
			GithubAuthzOrg: "acme",
			SessionSecret:  testSecret,
		},
		Provider: provider,
		Sessions: newMemSessions(),
		Users:    newMemUsers(),
		Catalog:  newMemCatalog(),
	})
	pred := api.isMember()

	cases := []struct {
		name   string
		claims session.Claims
		want   Decision
	}{
		{"org member", session.Claims{UserID: 7, GithubUsername: "octocat", AccessToken: "gho_test"}, Allow},
		{"non-member", session.Claims{UserID: 8, GithubUsername: "stranger", AccessToken: "gho_test"}, Deny},
		{"no username claim", session.Claims{UserID: 9}, Deny},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pred(t.Context(), tc.claims)
			if err != nil {
				t.Fatalf("predicate: %v", err)
			}
			if got != tc.want {
				t.Fatalf("decision = %v, want %v", got, tc.want)
			}
		})
	}

	provider.membershipErr = errors.New("github: org membership lookup: unexpected status 502")
	if _, err := pred(t.Context(), session.Claims{UserID: 7, GithubUsername: "octocat"}); err == nil {
		t.Fatal("expected lookup failure to propagate")
	}
}
