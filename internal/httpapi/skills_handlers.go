package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"tessa.org/internal/httperr"
	"tessa.org/internal/session"
	"tessa.org/internal/skills"
)

func (a *API) listSkills(w http.ResponseWriter, r *http.Request) error {
	res, err := a.catalog.Skills(r.Context()).List(r.Context())
	if err != nil {
		return err
	}
	writeCollection(w, http.StatusOK, res, len(res))
	return nil
}

func (a *API) getSkill(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "skill")
	if err != nil {
		return err
	}
	detail, err := a.catalog.Skills(r.Context()).Find(r.Context(), id)
	if errors.Is(err, skills.ErrNotFound) {
		return httperr.NotFound(fmt.Sprintf("A skill with the id %q could not be found.", chiParam(r, "id")))
	}
	if err != nil {
		return err
	}
	writeItem(w, http.StatusOK, detail)
	return nil
}

type skillBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (b skillBody) validate() error {
	if b.Name == nil || b.Description == nil {
		return httperr.Unprocessable(`The request body must be an object with "name" and "description" properties.`)
	}
	if !isNonWhitespaceOnlyString(*b.Name) {
		return httperr.Unprocessable(`"name" must contain text.`)
	}
	if !isNonWhitespaceOnlyString(*b.Description) {
		return httperr.Unprocessable(`"description" must contain text.`)
	}
	return nil
}

func (a *API) createSkill(w http.ResponseWriter, r *http.Request) error {
	var body skillBody
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if err := body.validate(); err != nil {
		return err
	}
	sess, _ := session.FromContext(r.Context())
	sk, err := a.catalog.Skills(r.Context()).Create(r.Context(), *body.Name, *body.Description, sess.Claims.UserID)
	if err != nil {
		return err
	}
	writeItem(w, http.StatusCreated, sk)
	return nil
}

func (a *API) updateSkill(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "skill")
	if err != nil {
		return err
	}
	var body skillBody
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if err := body.validate(); err != nil {
		return err
	}
	sess, _ := session.FromContext(r.Context())
	sk, err := a.catalog.Skills(r.Context()).Update(r.Context(), id, *body.Name, *body.Description, sess.Claims.UserID)
	if errors.Is(err, skills.ErrNotFound) {
		return httperr.NotFound(fmt.Sprintf("A skill with the id %q could not be found.", chiParam(r, "id")))
	}
	if err != nil {
		return err
	}
	writeItem(w, http.StatusOK, sk)
	return nil
}

func (a *API) tagSkill(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "skill")
	if err != nil {
		return err
	}
	var body struct {
		TagName *string `json:"tag_name"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.TagName == nil {
		return httperr.Unprocessable(`The request body must be an object with a "tag_name" property.`)
	}
	if !isNonWhitespaceOnlyString(*body.TagName) {
		return httperr.Unprocessable(`"tag_name" must contain text.`)
	}

	store := a.catalog.Skills(r.Context())
	if _, err := store.Find(r.Context(), id); err != nil {
		if errors.Is(err, skills.ErrNotFound) {
			return httperr.NotFound(fmt.Sprintf("A skill with the id %q could not be found.", chiParam(r, "id")))
		}
		return err
	}
	st, err := store.Tag(r.Context(), id, *body.TagName)
	if err != nil {
		return err
	}
	writeItem(w, http.StatusOK, st)
	return nil
}

func (a *API) untagSkill(w http.ResponseWriter, r *http.Request) error {
	skillID, err := pathID(r, "skillID", "skill")
	if err != nil {
		return err
	}
	tagID, err := pathID(r, "tagID", "tag")
	if err != nil {
		return err
	}
	if err := a.catalog.Skills(r.Context()).Untag(r.Context(), skillID, tagID); err != nil {
		return err
	}
	writeItem(w, http.StatusOK, map[string]bool{"success": true})
	return nil
}
