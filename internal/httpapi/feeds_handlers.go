package httpapi

import (
	"net/http"

	"tessa.org/internal/skills"
)

// changesFeed is the public landing-page digest: the most recently edited
// recommendations and skills.
func (a *API) changesFeed(w http.ResponseWriter, r *http.Request) error {
	recommendations, err := a.catalog.Recommendations(r.Context()).ListLatestChanged(r.Context())
	if err != nil {
		return err
	}
	changedSkills, err := a.catalog.Skills(r.Context()).ListLatestChanged(r.Context())
	if err != nil {
		return err
	}
	writeItem(w, http.StatusOK, skills.ChangesFeed{
		Recommendations: recommendations,
		Skills:          changedSkills,
	})
	return nil
}
