package session

import (
	"context"
	"database/sql"
	"time"
)

// Store persists login sessions.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	Touch(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, user_id, github_username, access_token, created_at, expires_at)
		 values($1,$2,$3,$4,$5,$6)`,
		sess.ID, sess.Claims.UserID, sess.Claims.GithubUsername, sess.Claims.AccessToken,
		sess.CreatedAt, sess.ExpiresAt,
	)
	return err
}

// Find returns the session only while it is still live. Expired rows are
// indistinguishable from absent ones.
func (s *PGStore) Find(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, github_username, access_token, created_at, expires_at
		 from sessions where id=$1 and expires_at > now()`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Claims.UserID, &sess.Claims.GithubUsername,
		&sess.Claims.AccessToken, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *PGStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update sessions set expires_at=$2 where id=$1`, id, expiresAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where id=$1`, id)
	return err
}

// DeleteExpired reaps rows past their expiry and reports how many were
// removed. Intended for a periodic sweep.
func (s *PGStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from sessions where expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
