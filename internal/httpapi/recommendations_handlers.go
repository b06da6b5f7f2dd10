package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"tessa.org/internal/httperr"
	"tessa.org/internal/session"
	"tessa.org/internal/skills"
)

func (a *API) createRecommendation(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		FacetID  *json.Number `json:"facet_id"`
		SkillID  *json.Number `json:"skill_id"`
		Markdown *string      `json:"markdown"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.FacetID == nil || body.SkillID == nil || body.Markdown == nil {
		return httperr.Unprocessable(`The request body must be an object with "facet_id", "skill_id" and "markdown" properties.`)
	}
	if !isNonWhitespaceOnlyString(*body.Markdown) {
		return httperr.Unprocessable(`"markdown" must contain text.`)
	}
	facetID, err := strconv.ParseInt(body.FacetID.String(), 10, 64)
	if err != nil || !isValidID(facetID) {
		return httperr.Unprocessable(fmt.Sprintf("%q is not a valid facet id.", body.FacetID.String()))
	}
	skillID, err := strconv.ParseInt(body.SkillID.String(), 10, 64)
	if err != nil || !isValidID(skillID) {
		return httperr.Unprocessable(fmt.Sprintf("%q is not a valid skill id.", body.SkillID.String()))
	}

	sess, _ := session.FromContext(r.Context())
	rec, err := a.catalog.Recommendations(r.Context()).Create(r.Context(), *body.Markdown, skillID, facetID, sess.Claims.UserID)
	if err != nil {
		return err
	}
	writeItem(w, http.StatusCreated, rec)
	return nil
}

func (a *API) updateRecommendation(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "recommendation")
	if err != nil {
		return err
	}

	store := a.catalog.Recommendations(r.Context())
	exists, err := store.Exists(r.Context(), id)
	if err != nil {
		return err
	}
	if !exists {
		return httperr.NotFound(fmt.Sprintf("A recommendation with the id %q could not be found.", chiParam(r, "id")))
	}

	var body struct {
		Markdown *string `json:"markdown"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Markdown == nil {
		return httperr.Unprocessable(`The request body must be an object with a "markdown" property.`)
	}
	if !isNonWhitespaceOnlyString(*body.Markdown) {
		return httperr.Unprocessable(`"markdown" must contain text.`)
	}

	sess, _ := session.FromContext(r.Context())
	rec, err := store.Update(r.Context(), id, *body.Markdown, sess.Claims.UserID)
	if errors.Is(err, skills.ErrNotFound) {
		return httperr.NotFound(fmt.Sprintf("A recommendation with the id %q could not be found.", chiParam(r, "id")))
	}
	if err != nil {
		return err
	}
	writeItem(w, http.StatusOK, rec)
	return nil
}
