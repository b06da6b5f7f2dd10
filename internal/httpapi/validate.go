package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tessa.org/internal/httperr"
)

// isValidID reports whether n can identify a row.
func isValidID(n int64) bool {
	return n > 0
}

// isNonWhitespaceOnlyString reports whether s carries text.
func isNonWhitespaceOnlyString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// chiParam returns the raw URL parameter, for error messages that quote the
// rejected value.
func chiParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// pathID parses the named chi URL parameter as a row id. The raw value is
// quoted back in the error so callers see what was rejected.
func pathID(r *http.Request, name, noun string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !isValidID(id) {
		return 0, httperr.BadRequest(fmt.Sprintf("%q is not a valid %s id.", raw, noun))
	}
	return id, nil
}

// decodeBody unmarshals the request body into dst. A body that is not a JSON
// object at all is an unprocessable entity, same as a missing field.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return httperr.Unprocessable("")
	}
	return nil
}
