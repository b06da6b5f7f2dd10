package skills

import (
	"context"
	"database/sql"

	"tessa.org/internal/obs"
)

// changesFeedLimit caps how many recently edited rows each feed section
// carries.
const changesFeedLimit = 3

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Skills(context.Context) SkillStore { return &skillStore{db: s.db} }
func (s *PGStore) Facets(context.Context) FacetStore { return &facetStore{db: s.db} }
func (s *PGStore) Statements(context.Context) StatementStore {
	return &statementStore{db: s.db}
}
func (s *PGStore) Recommendations(context.Context) RecommendationStore {
	return &recommendationStore{db: s.db}
}
func (s *PGStore) Reflections(context.Context) ReflectionStore {
	return &reflectionStore{db: s.db}
}

// Skill store ---------------------------------------------------------------
type skillStore struct{ db *sql.DB }

func (s *skillStore) List(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, description from skills order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Skill{}
	index := map[int64]int{}
	for rows.Next() {
		var sk Skill
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.Description); err != nil {
			return nil, err
		}
		sk.Tags = []Tag{}
		index[sk.ID] = len(res)
		res = append(res, sk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return res, nil
	}

	tagRows, err := s.db.QueryContext(ctx,
		`select skill_id, tag_id, tags.name
		 from skills_tags join tags on tag_id = tags.id
		 order by tags.name`)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var (
			skillID int64
			tag     Tag
		)
		if err := tagRows.Scan(&skillID, &tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		if i, ok := index[skillID]; ok {
			res[i].Tags = append(res[i].Tags, tag)
		}
	}
	return res, tagRows.Err()
}

func (s *skillStore) ListLatestChanged(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, description from skills
		 where id in (
		   select skill_id from skill_changes
		   group by skill_id order by max(created_at) desc limit $1
		 )`, changesFeedLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Skill{}
	for rows.Next() {
		var sk Skill
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.Description); err != nil {
			return nil, err
		}
		sk.Tags = []Tag{}
		res = append(res, sk)
	}
	return res, rows.Err()
}

func (s *skillStore) Find(ctx context.Context, id int64) (*SkillDetail, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, description from skills where id=$1`, id)
	var detail SkillDetail
	if err := row.Scan(&detail.ID, &detail.Name, &detail.Description); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	detail.Tags = []Tag{}
	detail.Recommendations = []Recommendation{}

	tagRows, err := s.db.QueryContext(ctx,
		`select tags.id, name from tags
		 join skills_tags on skills_tags.tag_id = tags.id
		 where skills_tags.skill_id = $1 order by name`, id)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tag Tag
		if err := tagRows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		detail.Tags = append(detail.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	recRows, err := s.db.QueryContext(ctx,
		`select id, markdown, facet_id from recommendations
		 where skill_id = $1 order by facet_id, id`, id)
	if err != nil {
		return nil, err
	}
	defer recRows.Close()
	for recRows.Next() {
		var rec Recommendation
		if err := recRows.Scan(&rec.ID, &rec.Markdown, &rec.FacetID); err != nil {
			return nil, err
		}
		detail.Recommendations = append(detail.Recommendations, rec)
	}
	return &detail, recRows.Err()
}

func (s *skillStore) Create(ctx context.Context, name, description string, editorID int64) (*Skill, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into skills(name, description) values($1,$2)
		 returning id, name, description`, name, description)
	var sk Skill
	if err := row.Scan(&sk.ID, &sk.Name, &sk.Description); err != nil {
		return nil, err
	}
	sk.Tags = []Tag{}
	s.trackChange(ctx, sk.ID, name, description, editorID)
	return &sk, nil
}

func (s *skillStore) Update(ctx context.Context, id int64, name, description string, editorID int64) (*Skill, error) {
	row := s.db.QueryRowContext(ctx,
		`update skills set name=$1, description=$2 where id=$3
		 returning id, name, description`, name, description, id)
	var sk Skill
	if err := row.Scan(&sk.ID, &sk.Name, &sk.Description); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sk.Tags = []Tag{}
	s.trackChange(ctx, id, name, description, editorID)
	return &sk, nil
}

// trackChange records the edit for the activity feed. Tracking is best
// effort; a failure is logged and the caller's write still succeeds.
func (s *skillStore) trackChange(ctx context.Context, skillID int64, name, description string, editorID int64) {
	_, err := s.db.ExecContext(ctx,
		`insert into skill_changes(skill_id, name, description, user_id)
		 values($1,$2,$3,$4)`, skillID, name, description, editorID)
	if err != nil {
		obs.LogEvent(map[string]any{
			"level":    "warn",
			"msg":      "skill_change_track_failed",
			"skill_id": skillID,
			"user_id":  editorID,
			"err":      err.Error(),
		})
	}
}

func (s *skillStore) Tag(ctx context.Context, skillID int64, tagName string) (*SkillTag, error) {
	tag, err := s.selectOrCreateTag(ctx, tagName)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`select id, skill_id, tag_id from skills_tags where skill_id=$1 and tag_id=$2`,
		skillID, tag.ID)
	var st SkillTag
	err = row.Scan(&st.ID, &st.SkillID, &st.TagID)
	if err == nil {
		return &st, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	row = s.db.QueryRowContext(ctx,
		`insert into skills_tags(skill_id, tag_id) values($1,$2)
		 returning id, skill_id, tag_id`, skillID, tag.ID)
	if err := row.Scan(&st.ID, &st.SkillID, &st.TagID); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *skillStore) selectOrCreateTag(ctx context.Context, name string) (*Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name from tags where name=$1 order by id limit 1`, name)
	var tag Tag
	err := row.Scan(&tag.ID, &tag.Name)
	if err == nil {
		return &tag, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	row = s.db.QueryRowContext(ctx,
		`insert into tags(name) values($1) returning id, name`, name)
	if err := row.Scan(&tag.ID, &tag.Name); err != nil {
		return nil, err
	}
	return &tag, nil
}

// Untag removes the association. Removing an association that does not exist
// is a no-op.
func (s *skillStore) Untag(ctx context.Context, skillID, tagID int64) error {
	_, err := s.db.ExecContext(ctx,
		`delete from skills_tags where skill_id=$1 and tag_id=$2`, skillID, tagID)
	return err
}

// Facet store ---------------------------------------------------------------
type facetStore struct{ db *sql.DB }

func (s *facetStore) List(ctx context.Context) ([]Facet, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, recommendation_prompt from facets order by sort_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Facet{}
	for rows.Next() {
		var f Facet
		if err := rows.Scan(&f.ID, &f.Name, &f.RecommendationPrompt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (s *facetStore) Create(ctx context.Context, name, recommendationPrompt string, sortOrder int64) (*Facet, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into facets(name, recommendation_prompt, sort_order) values($1,$2,$3)
		 returning id, name, recommendation_prompt, sort_order`,
		name, recommendationPrompt, sortOrder)
	var f Facet
	if err := row.Scan(&f.ID, &f.Name, &f.RecommendationPrompt, &f.SortOrder); err != nil {
		return nil, err
	}
	return &f, nil
}

// Statement store -----------------------------------------------------------
type statementStore struct{ db *sql.DB }

func (s *statementStore) List(ctx context.Context) ([]Statement, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, assertion, facet_id from statements order by facet_id, sort_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Statement{}
	for rows.Next() {
		var st Statement
		if err := rows.Scan(&st.ID, &st.Assertion, &st.FacetID); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func (s *statementStore) Create(ctx context.Context, assertion string, facetID, sortOrder int64) (*Statement, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into statements(assertion, facet_id, sort_order) values($1,$2,$3)
		 returning id, assertion, facet_id, sort_order`, assertion, facetID, sortOrder)
	var st Statement
	if err := row.Scan(&st.ID, &st.Assertion, &st.FacetID, &st.SortOrder); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *statementStore) Update(ctx context.Context, id int64, assertion string) (*Statement, error) {
	row := s.db.QueryRowContext(ctx,
		`update statements set assertion=$1 where id=$2
		 returning id, assertion, facet_id, sort_order`, assertion, id)
	var st Statement
	if err := row.Scan(&st.ID, &st.Assertion, &st.FacetID, &st.SortOrder); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// Recommendation store ------------------------------------------------------
type recommendationStore struct{ db *sql.DB }

func (s *recommendationStore) Exists(ctx context.Context, id int64) (bool, error) {
	row := s.db.QueryRowContext(ctx, `select id from recommendations where id=$1`, id)
	var found int64
	if err := row.Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *recommendationStore) ListLatestChanged(ctx context.Context) ([]Recommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, markdown, skill_id, facet_id from recommendations
		 where id in (
		   select recommendation_id from recommendation_changes
		   group by recommendation_id order by max(created_at) desc limit $1
		 )`, changesFeedLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Recommendation{}
	for rows.Next() {
		var rec Recommendation
		if err := rows.Scan(&rec.ID, &rec.Markdown, &rec.SkillID, &rec.FacetID); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (s *recommendationStore) Create(ctx context.Context, markdown string, skillID, facetID, editorID int64) (*Recommendation, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into recommendations(markdown, skill_id, facet_id) values($1,$2,$3)
		 returning id, markdown, skill_id, facet_id`, markdown, skillID, facetID)
	var rec Recommendation
	if err := row.Scan(&rec.ID, &rec.Markdown, &rec.SkillID, &rec.FacetID); err != nil {
		return nil, err
	}
	s.trackChange(ctx, rec.ID, markdown, editorID)
	return &rec, nil
}

func (s *recommendationStore) Update(ctx context.Context, id int64, markdown string, editorID int64) (*Recommendation, error) {
	row := s.db.QueryRowContext(ctx,
		`update recommendations set markdown=$1 where id=$2
		 returning id, markdown, skill_id, facet_id`, markdown, id)
	var rec Recommendation
	if err := row.Scan(&rec.ID, &rec.Markdown, &rec.SkillID, &rec.FacetID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.trackChange(ctx, id, markdown, editorID)
	return &rec, nil
}

func (s *recommendationStore) trackChange(ctx context.Context, recommendationID int64, markdown string, editorID int64) {
	_, err := s.db.ExecContext(ctx,
		`insert into recommendation_changes(markdown, recommendation_id, user_id)
		 values($1,$2,$3)`, markdown, recommendationID, editorID)
	if err != nil {
		obs.LogEvent(map[string]any{
			"level":             "warn",
			"msg":               "recommendation_change_track_failed",
			"recommendation_id": recommendationID,
			"user_id":           editorID,
			"err":               err.Error(),
		})
	}
}

// Reflection store ----------------------------------------------------------
type reflectionStore struct{ db *sql.DB }

func (s *reflectionStore) ListForUser(ctx context.Context, userID int64) ([]Reflection, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, skill_id, statement_id, created_at from reflections
		 where user_id=$1 order by created_at desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Reflection{}
	for rows.Next() {
		var r Reflection
		if err := rows.Scan(&r.ID, &r.SkillID, &r.StatementID, &r.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *reflectionStore) Create(ctx context.Context, userID, skillID, statementID int64) (*Reflection, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into reflections(user_id, skill_id, statement_id) values($1,$2,$3)
		 returning id, skill_id, statement_id, created_at`, userID, skillID, statementID)
	var r Reflection
	if err := row.Scan(&r.ID, &r.SkillID, &r.StatementID, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *reflectionStore) FindLatestForSkillFacet(ctx context.Context, userID, skillID, facetID int64) (*Reflection, error) {
	row := s.db.QueryRowContext(ctx,
		`select r.id, r.skill_id, r.statement_id, r.created_at
		 from reflections r join statements st on r.statement_id = st.id
		 where r.user_id=$1 and r.skill_id=$2 and st.facet_id=$3
		 order by r.created_at desc limit 1`, userID, skillID, facetID)
	var r Reflection
	if err := row.Scan(&r.ID, &r.SkillID, &r.StatementID, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}
