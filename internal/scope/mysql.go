// internal/scope/mysql.go
//
// MySQL-backed session store.
//
// Context
// -------
// When several gateway instances sit behind a load balancer, session
// context must survive a request landing on a different instance.  The
// MySQLStore keeps one row per session:
//
//	CREATE TABLE session_context (
//	    session_id    VARCHAR(64)  NOT NULL PRIMARY KEY,
//	    school_id     VARCHAR(64)  NULL,
//	    school_name   VARCHAR(255) NULL,
//	    subject_id    VARCHAR(64)  NULL,
//	    subject_name  VARCHAR(255) NULL,
//	    user_role     VARCHAR(16)  NOT NULL DEFAULT '',
//	    access_token  TEXT         NULL,
//	    updated_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// Every write is a single upsert, so a Selection is replaced as a whole.
// Reads refresh updated_at at most once per TouchInterval, so a session
// that only reads is not purged as idle.
//
// Notes
// -----
//   - A NULL subject_id means "no selection", whatever the other columns
//     hold.
//   - Errors are returned verbatim; callers wrap or log them.
package scope

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/account"
)

// Schema is the DDL for the session_context table.
const Schema = `CREATE TABLE IF NOT EXISTS session_context (
    session_id    VARCHAR(64)  NOT NULL PRIMARY KEY,
    school_id     VARCHAR(64)  NULL,
    school_name   VARCHAR(255) NULL,
    subject_id    VARCHAR(64)  NULL,
    subject_name  VARCHAR(255) NULL,
    user_role     VARCHAR(16)  NOT NULL DEFAULT '',
    access_token  TEXT         NULL,
    updated_at    TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// TouchInterval throttles the activity stamp written by Load.
const TouchInterval = time.Minute

// MySQLStore implements Store on a shared database.
type MySQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*MySQLStore)(nil)

// NewMySQLStore wraps an open pool.  The caller owns db.
func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db, now: time.Now}
}

// Migrate creates the table when missing.
func (s *MySQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

type row struct {
	SchoolID    sql.NullString `db:"school_id"`
	SchoolName  sql.NullString `db:"school_name"`
	SubjectID   sql.NullString `db:"subject_id"`
	SubjectName sql.NullString `db:"subject_name"`
	UserRole    string         `db:"user_role"`
	Token       sql.NullString `db:"access_token"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (s *MySQLStore) Load(ctx context.Context, sid string) (State, error) {
	const q = `
        SELECT school_id, school_name, subject_id, subject_name,
               user_role, access_token, updated_at
        FROM   session_context
        WHERE  session_id = ?
        LIMIT  1`

	var r row
	if err := s.db.GetContext(ctx, &r, q, sid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, nil
		}
		return State{}, err
	}

	if now := s.now(); now.Sub(r.UpdatedAt) > TouchInterval {
		if err := s.touch(ctx, sid, now); err != nil {
			zap.L().Warn("session touch", zap.Error(err))
		}
	}

	st := State{
		Role:      account.ParseRole(r.UserRole),
		Token:     r.Token.String,
		UpdatedAt: r.UpdatedAt,
	}
	if r.SubjectID.Valid {
		st.Selection = &Selection{
			SchoolID:    r.SchoolID.String,
			SchoolName:  r.SchoolName.String,
			SubjectID:   r.SubjectID.String,
			SubjectName: r.SubjectName.String,
		}
	}
	return st, nil
}

func (s *MySQLStore) PutSelection(ctx context.Context, sid string, sel Selection) error {
	const q = `
        INSERT INTO session_context
               (session_id, school_id, school_name, subject_id, subject_name, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
               school_id = VALUES(school_id),
               school_name = VALUES(school_name),
               subject_id = VALUES(subject_id),
               subject_name = VALUES(subject_name),
               updated_at = VALUES(updated_at)`

	_, err := s.db.ExecContext(ctx, q, sid,
		sel.SchoolID, sel.SchoolName, sel.SubjectID, sel.SubjectName, s.now().UTC())
	return err
}

func (s *MySQLStore) ClearSelection(ctx context.Context, sid string) error {
	const q = `
        UPDATE session_context
        SET    school_id = NULL, school_name = NULL,
               subject_id = NULL, subject_name = NULL,
               updated_at = ?
        WHERE  session_id = ?`

	_, err := s.db.ExecContext(ctx, q, s.now().UTC(), sid)
	return err
}

func (s *MySQLStore) PutAuth(ctx context.Context, sid string, role account.Role, token string) error {
	const q = `
        INSERT INTO session_context (session_id, user_role, access_token, updated_at)
        VALUES (?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
               user_role = VALUES(user_role),
               access_token = VALUES(access_token),
               updated_at = VALUES(updated_at)`

	_, err := s.db.ExecContext(ctx, q, sid, role.String(), token, s.now().UTC())
	return err
}

func (s *MySQLStore) touch(ctx context.Context, sid string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE session_context SET updated_at = ? WHERE session_id = ?`, now.UTC(), sid)
	return err
}

func (s *MySQLStore) Rename(ctx context.Context, from, to string) error {
	if from == to {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_context WHERE session_id = ?`, to); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE session_context SET session_id = ?, updated_at = ? WHERE session_id = ?`,
		to, s.now().UTC(), from); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *MySQLStore) Delete(ctx context.Context, sid string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_context WHERE session_id = ?`, sid)
	return err
}

// PurgeIdle deletes sessions not used since cutoff.  Run it from a
// ticker in the composition root.
func (s *MySQLStore) PurgeIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_context WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
