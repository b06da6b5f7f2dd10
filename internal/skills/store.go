package skills

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = errors.New("not found")

// Store bundles the catalog stores behind one construction point so handlers
// depend on a single value.
type Store interface {
	Skills(ctx context.Context) SkillStore
	Facets(ctx context.Context) FacetStore
	Statements(ctx context.Context) StatementStore
	Recommendations(ctx context.Context) RecommendationStore
	Reflections(ctx context.Context) ReflectionStore
}

// SkillStore reads and writes skills and their tag associations. The editor
// id on writes feeds the change log; a change-log failure never fails the
// write itself.
type SkillStore interface {
	List(ctx context.Context) ([]Skill, error)
	ListLatestChanged(ctx context.Context) ([]Skill, error)
	Find(ctx context.Context, id int64) (*SkillDetail, error)
	Create(ctx context.Context, name, description string, editorID int64) (*Skill, error)
	Update(ctx context.Context, id int64, name, description string, editorID int64) (*Skill, error)
	// Tag associates the named tag with the skill, creating the tag on first
	// use. Tagging an already-tagged skill returns the existing association.
	Tag(ctx context.Context, skillID int64, tagName string) (*SkillTag, error)
	Untag(ctx context.Context, skillID, tagID int64) error
}

type FacetStore interface {
	List(ctx context.Context) ([]Facet, error)
	Create(ctx context.Context, name, recommendationPrompt string, sortOrder int64) (*Facet, error)
}

type StatementStore interface {
	List(ctx context.Context) ([]Statement, error)
	Create(ctx context.Context, assertion string, facetID, sortOrder int64) (*Statement, error)
	Update(ctx context.Context, id int64, assertion string) (*Statement, error)
}

type RecommendationStore interface {
	Exists(ctx context.Context, id int64) (bool, error)
	ListLatestChanged(ctx context.Context) ([]Recommendation, error)
	Create(ctx context.Context, markdown string, skillID, facetID, editorID int64) (*Recommendation, error)
	Update(ctx context.Context, id int64, markdown string, editorID int64) (*Recommendation, error)
}

// ReflectionStore is scoped to one user per call; reflections are never
// visible across users.
type ReflectionStore interface {
	ListForUser(ctx context.Context, userID int64) ([]Reflection, error)
	Create(ctx context.Context, userID, skillID, statementID int64) (*Reflection, error)
	// FindLatestForSkillFacet returns the user's most recent reflection for
	// the skill whose statement belongs to the facet, or nil when the user
	// has not reflected there yet.
	FindLatestForSkillFacet(ctx context.Context, userID, skillID, facetID int64) (*Reflection, error)
}
