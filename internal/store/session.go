package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"oversee-cli/internal/model"
)

const sessionFileName = "session.sqlite"

var ErrNoSession = errors.New("not logged in (run: oversee login --token <token>)")

// Session is who is signed in and which branch they work on.
type Session struct {
	Token     string       `json:"-"`
	User      model.User   `json:"user"`
	Branch    model.Branch `json:"branch"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (s Session) HasBranch() bool { return s.Branch.Code != "" }

func (s Store) sqlitePath() string {
	return filepath.Join(s.Dir, sessionFileName)
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSession(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSession(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			branch_code TEXT NOT NULL DEFAULT '',
			branch_name TEXT NOT NULL DEFAULT '',
			updated_at_unixms INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate session: %w", err)
		}
	}
	return nil
}

// SaveSession replaces the stored session.
func (s Store) SaveSession(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return errors.New("session token is empty")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now()
	}
	_, err = db.ExecContext(ctx, `INSERT INTO session(id, token, user_id, user_name, branch_code, branch_name, updated_at_unixms)
		VALUES(1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			user_name = excluded.user_name,
			branch_code = excluded.branch_code,
			branch_name = excluded.branch_name,
			updated_at_unixms = excluded.updated_at_unixms`,
		sess.Token, sess.User.ID, sess.User.Name, sess.Branch.Code, sess.Branch.Name, sess.UpdatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	log.WithField("user", sess.User.ID).Debug("session saved")
	return nil
}

// LoadSession returns ErrNoSession when nobody is signed in.
func (s Store) LoadSession(ctx context.Context) (Session, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return Session{}, err
	}
	defer db.Close()

	var (
		sess Session
		ms   int64
	)
	err = db.QueryRowContext(ctx, `SELECT token, user_id, user_name, branch_code, branch_name, updated_at_unixms FROM session WHERE id = 1`).
		Scan(&sess.Token, &sess.User.ID, &sess.User.Name, &sess.Branch.Code, &sess.Branch.Name, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	sess.UpdatedAt = time.UnixMilli(ms).UTC()
	return sess, nil
}

// SetBranch changes the selected branch of the current session.
func (s Store) SetBranch(ctx context.Context, b model.Branch) error {
	sess, err := s.LoadSession(ctx)
	if err != nil {
		return err
	}
	sess.Branch = b
	sess.UpdatedAt = time.Now()
	return s.SaveSession(ctx, sess)
}

func (s Store) ClearSession(ctx context.Context) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, or "" when signed out.
func (s Store) Token(ctx context.Context) (string, error) {
	sess, err := s.LoadSession(ctx)
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}
