package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tessa.org/internal/httperr"
)

func (a *API) listFacets(w http.ResponseWriter, r *http.Request) error {
	res, err := a.catalog.Facets(r.Context()).List(r.Context())
	if err != nil {
		return err
	}
	writeCollection(w, http.StatusOK, res, len(res))
	return nil
}

func (a *API) createFacet(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		Name                 *string      `json:"name"`
		RecommendationPrompt *string      `json:"recommendation_prompt"`
		SortOrder            *json.Number `json:"sort_order"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Name == nil || body.RecommendationPrompt == nil || body.SortOrder == nil {
		return httperr.Unprocessable(`The request body must be an object with "name", "recommendation_prompt" and "sort_order" properties.`)
	}
	if !isNonWhitespaceOnlyString(*body.Name) {
		return httperr.Unprocessable(`"name" must contain text.`)
	}
	if !isNonWhitespaceOnlyString(*body.RecommendationPrompt) {
		return httperr.Unprocessable(`"recommendation_prompt" must contain text.`)
	}
	sortOrder, err := strconv.ParseInt(body.SortOrder.String(), 10, 64)
	if err != nil {
		return httperr.Unprocessable(`"sort_order" must be an integer.`)
	}

	f, err := a.catalog.Facets(r.Context()).Create(r.Context(), *body.Name, *body.RecommendationPrompt, sortOrder)
	if err != nil {
		return err
	}
	writeItem(w, http.StatusCreated, f)
	return nil
}
