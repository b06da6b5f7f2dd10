// Package skills holds the mentorship catalog: skills and their tags, the
// facets a skill is assessed along, the statements mentees reflect against,
// and the authored recommendations per skill and facet. Edits to skills and
// recommendations are tracked in change tables that feed the activity feed.
package skills

import "time"

// Skill is a capability in the catalog. Tags is always marshaled, empty or
// not, so clients never distinguish "no tags" from "tags not loaded".
type Skill struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tags        []Tag  `json:"tags"`
}

// SkillDetail is a skill with its recommendations, returned by single-skill
// reads.
type SkillDetail struct {
	Skill
	Recommendations []Recommendation `json:"recommendations"`
}

// Tag is a label shared across skills.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SkillTag is the association row between a skill and a tag.
type SkillTag struct {
	ID      int64 `json:"id"`
	SkillID int64 `json:"skill_id"`
	TagID   int64 `json:"tag_id"`
}

// Facet is an assessment dimension, ordered by sort_order for display.
type Facet struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	RecommendationPrompt string `json:"recommendation_prompt"`
	SortOrder            int64  `json:"sort_order,omitempty"`
}

// Statement is a self-assessment assertion belonging to a facet.
type Statement struct {
	ID        int64  `json:"id"`
	Assertion string `json:"assertion"`
	FacetID   int64  `json:"facet_id"`
	SortOrder int64  `json:"sort_order,omitempty"`
}

// Recommendation is authored guidance for a skill along one facet.
type Recommendation struct {
	ID       int64  `json:"id"`
	Markdown string `json:"markdown"`
	SkillID  int64  `json:"skill_id,omitempty"`
	FacetID  int64  `json:"facet_id"`
}

// Reflection is a mentee's self-assessment: at a point in time they chose a
// statement for a skill. Reflections are append-only.
type Reflection struct {
	ID          int64     `json:"id"`
	SkillID     int64     `json:"skill_id"`
	StatementID int64     `json:"statement_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChangesFeed is the recent-activity digest for the landing page.
type ChangesFeed struct {
	Recommendations []Recommendation `json:"recommendations"`
	Skills          []Skill          `json:"skills"`
}
