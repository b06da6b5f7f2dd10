package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tessa.org/internal/audit"
	"tessa.org/internal/httperr"
	"tessa.org/internal/obs"
	"tessa.org/internal/session"
)

// githubLogin starts the OAuth flow. The signed state binds the eventual
// callback to this service; an optional return_to path is carried inside it.
func (a *API) githubLogin(w http.ResponseWriter, r *http.Request) error {
	returnTo := r.URL.Query().Get("return_to")
	if !strings.HasPrefix(returnTo, "/") {
		returnTo = ""
	}
	state, err := a.state.Issue(returnTo)
	if err != nil {
		return fmt.Errorf("issue oauth state: %w", err)
	}
	http.Redirect(w, r, a.provider.AuthorizeURL(state), http.StatusFound)
	return nil
}

// githubCallback finishes the OAuth flow: exchange the code, fetch the
// identity, find or create the local account, and start a session. Claims
// are written wholesale; nothing from a previous session survives.
func (a *API) githubCallback(w http.ResponseWriter, r *http.Request) error {
	code := r.URL.Query().Get("code")
	if code == "" {
		return httperr.BadRequest(`A "code" query string parameter is required.`)
	}
	returnTo, err := a.state.Verify(r.URL.Query().Get("state"))
	if err != nil {
		return httperr.BadRequest(`The "state" query string parameter is missing or invalid.`)
	}

	ctx := audit.WithRequestID(r.Context(), requestIDFromContext(r.Context()))

	accessToken, err := a.provider.ExchangeCode(ctx, code)
	if err != nil {
		obs.CountLogin("exchange_failed")
		return fmt.Errorf("exchange code: %w", err)
	}
	identity, err := a.provider.FetchIdentity(ctx, accessToken)
	if err != nil {
		obs.CountLogin("identity_failed")
		return fmt.Errorf("fetch identity: %w", err)
	}

	user, err := a.users.Upsert(ctx, identity.ID, identity.Login)
	if err != nil {
		obs.CountLogin("user_upsert_failed")
		return fmt.Errorf("upsert user: %w", err)
	}

	now := time.Now()
	sess := &session.Session{
		ID: session.NewID(),
		Claims: session.Claims{
			UserID:         user.ID,
			GithubUsername: user.GithubUsername,
			AccessToken:    accessToken,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(session.TTL),
	}
	if err := a.sessions.Create(ctx, sess); err != nil {
		obs.CountLogin("session_create_failed")
		return fmt.Errorf("create session: %w", err)
	}
	a.codec.SetCookie(w, sess.ID, sess.ExpiresAt, secureRequest(r))

	obs.CountLogin("ok")
	_ = audit.LogEvent(ctx, "user_signed_in", map[string]any{
		"user_id":         user.ID,
		"github_username": user.GithubUsername,
	})

	http.Redirect(w, r, a.cfg.WebappOrigin+returnTo, http.StatusFound)
	return nil
}

// logout destroys the session record and clears the cookie. Logging out
// while anonymous is a no-op redirect.
func (a *API) logout(w http.ResponseWriter, r *http.Request) error {
	if sess, ok := session.FromContext(r.Context()); ok {
		ctx := audit.WithRequestID(r.Context(), requestIDFromContext(r.Context()))
		if err := a.sessions.Delete(ctx, sess.ID); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
		_ = audit.LogEvent(ctx, "user_signed_out", nil)
	}
	a.codec.ClearCookie(w)
	http.Redirect(w, r, a.cfg.WebappOrigin, http.StatusFound)
	return nil
}

// currentSession reports the caller's claims. Anonymous callers get an empty
// object, not an error; the webapp uses this to decide whether to offer the
// sign-in flow.
func (a *API) currentSession(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		UserID         int64  `json:"user_id,omitempty"`
		GithubUsername string `json:"github_username,omitempty"`
	}
	if sess, ok := session.FromContext(r.Context()); ok {
		body.UserID = sess.Claims.UserID
		body.GithubUsername = sess.Claims.GithubUsername
	}
	writeItem(w, http.StatusOK, body)
	return nil
}
