package session

import (
	"context"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/jmoiron/sqlx"
)

// MySQLSchema is the table mysqlstore reads and writes.
const MySQLSchema = `CREATE TABLE IF NOT EXISTS sessions (
    token  CHAR(43)     NOT NULL PRIMARY KEY,
    data   BLOB         NOT NULL,
    expiry TIMESTAMP(6) NOT NULL,
    INDEX sessions_expiry_idx (expiry)
)`

// NewMySQLStore creates the sessions table when missing and returns an scs
// store on db.  The store deletes expired records in the background until
// StopCleanup is called.  The caller owns db.
func NewMySQLStore(ctx context.Context, db *sqlx.DB) (*mysqlstore.MySQLStore, error) {
	if _, err := db.ExecContext(ctx, MySQLSchema); err != nil {
		return nil, err
	}
	return mysqlstore.New(db.DB), nil
}
