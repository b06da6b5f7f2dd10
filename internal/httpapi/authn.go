package httpapi

import (
	"errors"
	"net/http"
	"time"

	"tessa.org/internal/httperr"
	"tessa.org/internal/obs"
	"tessa.org/internal/session"
)

// withSession resolves the session cookie into request context. A missing,
// forged or expired cookie makes the request anonymous; it never fails the
// request. A live session slides its expiry forward by the full TTL.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := a.codec.Decode(cookie.Value)
		if err != nil {
			a.codec.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		sess, err := a.sessions.Find(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			a.codec.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			// The caller may well hold a valid session; answering as
			// anonymous here would misreport an infrastructure failure as a
			// denial.
			obs.LogEvent(map[string]any{
				"level":      "error",
				"msg":        "session_load_failed",
				"request_id": requestIDFromContext(r.Context()),
				"err":        err.Error(),
			})
			writeError(w, http.StatusInternalServerError,
				httperr.DefaultMessage(httperr.KindInternal))
			return
		}

		expiresAt := time.Now().Add(session.TTL)
		if err := a.sessions.Touch(r.Context(), id, expiresAt); err == nil {
			a.codec.SetCookie(w, id, expiresAt, secureRequest(r))
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

func secureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
