package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"tessa.org/internal/httperr"
	"tessa.org/internal/obs"
)

// Every response body is one of three envelopes: an item {data}, a
// collection {data, summary:{total_count}}, or an error {error:{message}}.

type errorBody struct {
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type itemEnvelope struct {
	Data any `json:"data"`
}

type collectionSummary struct {
	TotalCount int `json:"total_count"`
}

type collectionEnvelope struct {
	Data    any               `json:"data"`
	Summary collectionSummary `json:"summary"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeItem(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, itemEnvelope{Data: data})
}

func writeCollection(w http.ResponseWriter, code int, data any, totalCount int) {
	writeJSON(w, code, collectionEnvelope{
		Data:    data,
		Summary: collectionSummary{TotalCount: totalCount},
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorEnvelope{Error: errorBody{Message: message}})
}

// handlerFunc is a handler that reports failure instead of writing it. The
// terminal adapter owns the error envelope so no handler ever renders its
// own failure.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle converts a handlerFunc into a http.HandlerFunc. Typed errors map to
// their kind's status and message; anything else becomes an opaque 500.
// Internal failures are logged with the request id; if the handler already
// started the response nothing further is written.
func handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw, ok := w.(*statusWriter)
		if !ok {
			sw = &statusWriter{ResponseWriter: w, code: http.StatusOK}
		}
		err := h(sw, r)
		if err == nil {
			return
		}

		status := http.StatusInternalServerError
		message := httperr.DefaultMessage(httperr.KindInternal)
		logIt := true
		var herr *httperr.Error
		if errors.As(err, &herr) {
			status = herr.Status()
			message = herr.Message()
			logIt = status >= 500
		}
		if logIt {
			obs.LogEvent(map[string]any{
				"level":      "error",
				"msg":        "request_failed",
				"request_id": requestIDFromContext(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"err":        err.Error(),
			})
		}
		if sw.started {
			return
		}
		writeError(sw, status, message)
	}
}
