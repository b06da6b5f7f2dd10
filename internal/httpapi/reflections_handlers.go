package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"tessa.org/internal/httperr"
	"tessa.org/internal/session"
)

func (a *API) listReflections(w http.ResponseWriter, r *http.Request) error {
	sess, _ := session.FromContext(r.Context())
	res, err := a.catalog.Reflections(r.Context()).ListForUser(r.Context(), sess.Claims.UserID)
	if err != nil {
		return err
	}
	writeCollection(w, http.StatusOK, res, len(res))
	return nil
}

func (a *API) latestReflection(w http.ResponseWriter, r *http.Request) error {
	skillID, err := pathID(r, "skillID", "skill")
	if err != nil {
		return err
	}
	facetID, err := pathID(r, "facetID", "facet")
	if err != nil {
		return err
	}

	sess, _ := session.FromContext(r.Context())
	reflection, err := a.catalog.Reflections(r.Context()).FindLatestForSkillFacet(
		r.Context(), sess.Claims.UserID, skillID, facetID)
	if err != nil {
		return err
	}
	if reflection == nil {
		// No reflection yet is an empty item, not an error.
		writeItem(w, http.StatusOK, nil)
		return nil
	}
	writeItem(w, http.StatusOK, reflection)
	return nil
}

func (a *API) createReflection(w http.ResponseWriter, r *http.Request) error {
	var body struct {
		SkillID     *json.Number `json:"skill_id"`
		StatementID *json.Number `json:"statement_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.SkillID == nil || body.StatementID == nil {
		return httperr.Unprocessable(`The request body must have "skill_id" and "statement_id" properties.`)
	}
	skillID, err := strconv.ParseInt(body.SkillID.String(), 10, 64)
	if err != nil || !isValidID(skillID) {
		return httperr.Unprocessable(fmt.Sprintf("%q is not a valid skill id.", body.SkillID.String()))
	}
	statementID, err := strconv.ParseInt(body.StatementID.String(), 10, 64)
	if err != nil || !isValidID(statementID) {
		return httperr.Unprocessable(fmt.Sprintf("%q is not a valid statement id.", body.StatementID.String()))
	}

	sess, _ := session.FromContext(r.Context())
	reflection, err := a.catalog.Reflections(r.Context()).Create(r.Context(), sess.Claims.UserID, skillID, statementID)
	if err != nil {
		return err
	}
	writeItem(w, http.StatusCreated, reflection)
	return nil
}
