package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"tessa.org/internal/httperr"
	"tessa.org/internal/skills"
)

func (a *API) listStatements(w http.ResponseWriter, r *http.Request) error {
	res, err := a.catalog.Statements(r.Context()).List(r.Context())
	if err != nil {
		return err
	}
	writeCollection(w, http.StatusOK, res, len(res))
	return nil
}

func (a *API) createStatement(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Assertion *string      `json:"assertion"`
		FacetID   *json.Number `json:"facet_id"`
		SortOrder *json.Number `json:"sort_order"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Assertion == nil || body.FacetID == nil || body.SortOrder == nil {
		return httperr.Unprocessable(`The request body must be an object with "assertion", "facet_id" and "sort_order" properties.`)
	}
	if !isNonWhitespaceOnlyString(*body.Assertion) {
		return httperr.Unprocessable(`"assertion" must contain text.`)
	}
	facetID, err := strconv.ParseInt(body.FacetID.String(), 10, 64)
	if err != nil || !isValidID(facetID) {
		return httperr.Unprocessable(fmt.Sprintf("%q is not a valid facet id.", body.FacetID.String()))
	}
	sortOrder, err := strconv.ParseInt(body.SortOrder.String(), 10, 64)
	if err != nil {
		return httperr.Unprocessable(`"sort_order" must be an integer.`)
	}

	st, err := a.catalog.Statements(r.Context()).Create(r.Context(), *body.Assertion, facetID, sortOrder)
	if err != nil {
		return err
	}
	writeItem(w, http.StatusCreated, st)
	return nil
}

func (a *API) updateStatement(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "statement")
	if err != nil {
		return err
	}
	var body struct {
		Assertion *string `json:"assertion"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Assertion == nil {
		return httperr.Unprocessable(`The request body must be an object with an "assertion" property.`)
	}
	if !isNonWhitespaceOnlyString(*body.Assertion) {
		return httperr.Unprocessable(`"assertion" must contain text.`)
	}

	st, err := a.catalog.Statements(r.Context()).Update(r.Context(), id, *body.Assertion)
	if errors.Is(err, skills.ErrNotFound) {
		return httperr.NotFound(fmt.Sprintf("A statement with the id %q could not be found.", chiParam(r, "id")))
	}
	if err != nil {
		return err
	}
	writeItem(w, http.StatusOK, st)
	return nil
}
