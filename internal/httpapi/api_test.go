package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tessa.org/internal/config"
	"tessa.org/internal/github"
	"tessa.org/internal/session"
	"tessa.org/internal/skills"
	"tessa.org/internal/users"
)

const testSecret = "test-secret"

// fakeProvider answers membership and OAuth calls from fixed fixtures and
// counts every provider round trip so tests can assert none happened.
type fakeProvider struct {
	mu    sync.Mutex
	calls int

	accessToken string
	exchangeErr error
	identity    github.Identity
	identityErr error

	orgMembers    map[string]bool
	teamMembers   map[string]bool // key "team/username"
	collaborators map[string]bool
	membershipErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accessToken:   "gho_test",
		identity:      github.Identity{ID: 583231, Login: "octocat"},
		orgMembers:    map[string]bool{},
		teamMembers:   map[string]bool{},
		collaborators: map[string]bool{},
	}
}

func (p *fakeProvider) count() {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProvider) AuthorizeURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (p *fakeProvider) ExchangeCode(_ context.Context, _ string) (string, error) {
	p.count()
	return p.accessToken, p.exchangeErr
}

func (p *fakeProvider) FetchIdentity(_ context.Context, _ string) (github.Identity, error) {
	p.count()
	return p.identity, p.identityErr
}

func (p *fakeProvider) IsOrgMember(_ context.Context, _, username, _ string) (bool, error) {
	p.count()
	if p.membershipErr != nil {
		return false, p.membershipErr
	}
	return p.orgMembers[username], nil
}

func (p *fakeProvider) IsTeamMember(_ context.Context, _, username, _, team string) (bool, error) {
	p.count()
	if p.membershipErr != nil {
		return false, p.membershipErr
	}
	return p.teamMembers[team+"/"+username], nil
}

func (p *fakeProvider) IsRepoCollaborator(_ context.Context, _, username, _ string) (bool, error) {
	p.count()
	if p.membershipErr != nil {
		return false, p.membershipErr
	}
	return p.collaborators[username], nil
}

// memSessions is an in-memory session.Store.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	findErr  error
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*session.Session{}}
}

func (s *memSessions) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = session.NewID()
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *memSessions) Find(_ context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	sess, ok := s.sessions[id]
	if !ok || sess.Expired(time.Now()) {
		return nil, session.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *memSessions) Touch(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	sess.ExpiresAt = expiresAt
	return nil
}

func (s *memSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func (s *memSessions) expiry(id string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.ExpiresAt
	}
	return time.Time{}
}

// memUsers is an in-memory users.Store keyed by github id.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byGH   map[int64]*users.User
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, byGH: map[int64]*users.User{}}
}

func (s *memUsers) Upsert(_ context.Context, githubID int64, githubUsername string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byGH[githubID]; ok {
		u.GithubUsername = githubUsername
		cp := *u
		return &cp, nil
	}
	u := &users.User{ID: s.nextID, GithubID: githubID, GithubUsername: githubUsername, CreatedAt: time.Now()}
	s.nextID++
	s.byGH[githubID] = u
	cp := *u
	return &cp, nil
}

func (s *memUsers) FindByID(_ context.Context, id int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byGH {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, users.ErrNotFound
}

// memCatalog is an in-memory skills.Store. The sub-stores are thin views
// over the shared state.
type memCatalog struct {
	mu     sync.Mutex
	nextID int64

	skills          map[int64]*skills.SkillDetail
	tags            map[int64]skills.Tag
	skillTags       []skills.SkillTag
	facets          []skills.Facet
	statements      map[int64]*skills.Statement
	recommendations map[int64]*skills.Recommendation
	reflections     map[int64][]skills.Reflection

	changedSkillIDs          []int64
	changedRecommendationIDs []int64

	err error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		nextID:          1,
		skills:          map[int64]*skills.SkillDetail{},
		tags:            map[int64]skills.Tag{},
		statements:      map[int64]*skills.Statement{},
		recommendations: map[int64]*skills.Recommendation{},
		reflections:     map[int64][]skills.Reflection{},
	}
}

func (c *memCatalog) id() int64 {
	v := c.nextID
	c.nextID++
	return v
}

func (c *memCatalog) addSkill(name, description string) *skills.SkillDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := &skills.SkillDetail{
		Skill:           skills.Skill{ID: c.id(), Name: name, Description: description, Tags: []skills.Tag{}},
		Recommendations: []skills.Recommendation{},
	}
	c.skills[d.ID] = d
	return d
}

func (c *memCatalog) addRecommendation(markdown string, skillID, facetID int64) *skills.Recommendation {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := &skills.Recommendation{ID: c.id(), Markdown: markdown, SkillID: skillID, FacetID: facetID}
	c.recommendations[rec.ID] = rec
	return rec
}

func (c *memCatalog) Skills(context.Context) skills.SkillStore { return memSkills{c} }
func (c *memCatalog) Facets(context.Context) skills.FacetStore { return memFacets{c} }
func (c *memCatalog) Statements(context.Context) skills.StatementStore {
	return memStatements{c}
}
func (c *memCatalog) Recommendations(context.Context) skills.RecommendationStore {
	return memRecommendations{c}
}
func (c *memCatalog) Reflections(context.Context) skills.ReflectionStore {
	return memReflections{c}
}

type memSkills struct{ c *memCatalog }

func (m memSkills) List(context.Context) ([]skills.Skill, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if m.c.err != nil {
		return nil, m.c.err
	}
	res := []skills.Skill{}
	for _, d := range m.c.skills {
		res = append(res, d.Skill)
	}
	return res, nil
}

func (m memSkills) ListLatestChanged(context.Context) ([]skills.Skill, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	res := []skills.Skill{}
	for _, id := range m.c.changedSkillIDs {
		if d, ok := m.c.skills[id]; ok {
			res = append(res, d.Skill)
		}
	}
	return res, nil
}

func (m memSkills) Find(_ context.Context, id int64) (*skills.SkillDetail, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if m.c.err != nil {
		return nil, m.c.err
	}
	d, ok := m.c.skills[id]
	if !ok {
		return nil, skills.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m memSkills) Create(_ context.Context, name, description string, _ int64) (*skills.Skill, error) {
	if m.c.err != nil {
		return nil, m.c.err
	}
	d := m.c.addSkill(name, description)
	cp := d.Skill
	return &cp, nil
}

func (m memSkills) Update(_ context.Context, id int64, name, description string, _ int64) (*skills.Skill, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	d, ok := m.c.skills[id]
	if !ok {
		return nil, skills.ErrNotFound
	}
	d.Name, d.Description = name, description
	cp := d.Skill
	return &cp, nil
}

func (m memSkills) Tag(_ context.Context, skillID int64, tagName string) (*skills.SkillTag, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	var tag *skills.Tag
	for _, t := range m.c.tags {
		if t.Name == tagName {
			cp := t
			tag = &cp
			break
		}
	}
	if tag == nil {
		t := skills.Tag{ID: m.c.id(), Name: tagName}
		m.c.tags[t.ID] = t
		tag = &t
	}
	for _, st := range m.c.skillTags {
		if st.SkillID == skillID && st.TagID == tag.ID {
			cp := st
			return &cp, nil
		}
	}
	st := skills.SkillTag{ID: m.c.id(), SkillID: skillID, TagID: tag.ID}
	m.c.skillTags = append(m.c.skillTags, st)
	return &st, nil
}

func (m memSkills) Untag(_ context.Context, skillID, tagID int64) error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	out := m.c.skillTags[:0]
	for _, st := range m.c.skillTags {
		if !(st.SkillID == skillID && st.TagID == tagID) {
			out = append(out, st)
		}
	}
	m.c.skillTags = out
	return nil
}

type memFacets struct{ c *memCatalog }

func (m memFacets) List(context.Context) ([]skills.Facet, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return append([]skills.Facet{}, m.c.facets...), nil
}

func (m memFacets) Create(_ context.Context, name, prompt string, sortOrder int64) (*skills.Facet, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	f := skills.Facet{ID: m.c.id(), Name: name, RecommendationPrompt: prompt, SortOrder: sortOrder}
	m.c.facets = append(m.c.facets, f)
	return &f, nil
}

type memStatements struct{ c *memCatalog }

func (m memStatements) List(context.Context) ([]skills.Statement, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	res := []skills.Statement{}
	for _, st := range m.c.statements {
		res = append(res, *st)
	}
	return res, nil
}

func (m memStatements) Create(_ context.Context, assertion string, facetID, sortOrder int64) (*skills.Statement, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	st := &skills.Statement{ID: m.c.id(), Assertion: assertion, FacetID: facetID, SortOrder: sortOrder}
	m.c.statements[st.ID] = st
	cp := *st
	return &cp, nil
}

func (m memStatements) Update(_ context.Context, id int64, assertion string) (*skills.Statement, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	st, ok := m.c.statements[id]
	if !ok {
		return nil, skills.ErrNotFound
	}
	st.Assertion = assertion
	cp := *st
	return &cp, nil
}

type memRecommendations struct{ c *memCatalog }

func (m memRecommendations) Exists(_ context.Context, id int64) (bool, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	_, ok := m.c.recommendations[id]
	return ok, nil
}

func (m memRecommendations) ListLatestChanged(context.Context) ([]skills.Recommendation, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	res := []skills.Recommendation{}
	for _, id := range m.c.changedRecommendationIDs {
		if rec, ok := m.c.recommendations[id]; ok {
			res = append(res, *rec)
		}
	}
	return res, nil
}

func (m memRecommendations) Create(_ context.Context, markdown string, skillID, facetID, _ int64) (*skills.Recommendation, error) {
	rec := m.c.addRecommendation(markdown, skillID, facetID)
	cp := *rec
	return &cp, nil
}

func (m memRecommendations) Update(_ context.Context, id int64, markdown string, _ int64) (*skills.Recommendation, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	rec, ok := m.c.recommendations[id]
	if !ok {
		return nil, skills.ErrNotFound
	}
	rec.Markdown = markdown
	cp := *rec
	return &cp, nil
}

type memReflections struct{ c *memCatalog }

func (m memReflections) ListForUser(_ context.Context, userID int64) ([]skills.Reflection, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return append([]skills.Reflection{}, m.c.reflections[userID]...), nil
}

func (m memReflections) Create(_ context.Context, userID, skillID, statementID int64) (*skills.Reflection, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	r := skills.Reflection{ID: m.c.id(), SkillID: skillID, StatementID: statementID, CreatedAt: time.Now()}
	m.c.reflections[userID] = append(m.c.reflections[userID], r)
	return &r, nil
}

func (m memReflections) FindLatestForSkillFacet(_ context.Context, userID, skillID, _ int64) (*skills.Reflection, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	list := m.c.reflections[userID]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].SkillID == skillID {
			cp := list[i]
			return &cp, nil
		}
	}
	return nil, nil
}

// newTestAPI wires an API onto fakes and starts a test server.
func newTestAPI(t *testing.T) (*httptest.Server, *fakeProvider, *memSessions, *memCatalog) {
	t.Helper()
	provider := newFakeProvider()
	sessions := newMemSessions()
	catalog := newMemCatalog()
	cfg := &config.Config{
		GithubClientID:     "client-id",
		GithubClientSecret: "client-secret",
		GithubRedirectURI:  "http://localhost:8080/auth/github/oauth/callback",
		GithubAuthzOrg:     "acme",
		GithubAdminsTeam:   "admins",
		GithubAuthorsTeam:  "authors",
		GithubCollabRepo:   "acme/handbook",
		SessionSecret:      testSecret,
		WebappOrigin:       "http://localhost:3000",
	}
	api := New(Deps{
		Config:   cfg,
		Provider: provider,
		Sessions: sessions,
		Users:    newMemUsers(),
		Catalog:  catalog,
		Version:  "test",
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv, provider, sessions, catalog
}

// signIn creates a live session and returns the signed cookie for it.
func signIn(t *testing.T, sessions *memSessions, claims session.Claims) *http.Cookie {
	t.Helper()
	now := time.Now()
	sess := &session.Session{
		ID:        session.NewID(),
		Claims:    claims,
		CreatedAt: now,
		ExpiresAt: now.Add(session.TTL),
	}
	if err := sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{
		Name:  session.CookieName,
		Value: session.NewCodec(testSecret).Encode(sess.ID),
	}
}

// doRequest performs a request against the test server without following
// redirects.
func doRequest(t *testing.T, method, url string, body io.Reader, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeJSON(t, resp, &envelope)
	return envelope.Error.Message
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, want, body)
	}
}
