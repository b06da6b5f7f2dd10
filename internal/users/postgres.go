package users

import (
	"context"
	"database/sql"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Upsert(ctx context.Context, githubID int64, githubUsername string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into users(github_id, github_username) values($1,$2)
		 on conflict (github_id) do update set github_username = excluded.github_username
		 returning id, github_id, github_username, created_at`,
		githubID, githubUsername,
	)
	var u User
	if err := row.Scan(&u.ID, &u.GithubID, &u.GithubUsername, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) FindByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, github_id, github_username, created_at from users where id=$1`, id)
	var u User
	if err := row.Scan(&u.ID, &u.GithubID, &u.GithubUsername, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
