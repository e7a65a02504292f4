// internal/delivery/store.go
//
// MySQL backend.  One row per submission in `contact_submission` (name
// configurable).  The submission ID is the primary key, so a retried
// insert of the same submission is a no-op rather than a failure.
//
// Notes
// -----
// • Table names cannot be bound as parameters.  config validates the name
//   against `sql_ident` before it ever reaches this file.
// • Oxford commas, two spaces after periods.

package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/serenity/internal/contact"
)

// DefaultTable is used when Store.Table is empty.
const DefaultTable = "contact_submission"

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Store inserts submissions with sqlx.
type Store struct {
	DB    *sqlx.DB
	Table string
}

// NewStore returns a Store bound to db.
func NewStore(db *sqlx.DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{DB: db, Table: table}
}

func (s *Store) Name() string { return "store" }

// Migration returns the idempotent DDL for the submission table.
func (s *Store) Migration() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id           VARCHAR(40)  NOT NULL PRIMARY KEY,
  full_name    VARCHAR(200) NOT NULL,
  email        VARCHAR(320) NOT NULL,
  phone        VARCHAR(32)  NOT NULL,
  message      TEXT         NOT NULL,
  client_ip    VARCHAR(45)  NOT NULL DEFAULT '',
  user_agent   VARCHAR(512) NOT NULL DEFAULT '',
  country      CHAR(2)      NOT NULL DEFAULT '',
  submitted_at DATETIME(3)  NOT NULL,
  KEY idx_submitted_at (submitted_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, s.Table)
}

// row is the column mapping for NamedExecContext.
type row struct {
	ID          string    `db:"id"`
	FullName    string    `db:"full_name"`
	Email       string    `db:"email"`
	Phone       string    `db:"phone"`
	Message     string    `db:"message"`
	ClientIP    string    `db:"client_ip"`
	UserAgent   string    `db:"user_agent"`
	Country     string    `db:"country"`
	SubmittedAt time.Time `db:"submitted_at"`
}

func (s *Store) insertSQL() string {
	return `INSERT INTO ` + s.Table + ` (id, full_name, email, phone, message, client_ip, user_agent, country, submitted_at) ` +
		`VALUES (:id, :full_name, :email, :phone, :message, :client_ip, :user_agent, :country, :submitted_at)`
}

// Deliver implements contact.Transport.
func (s *Store) Deliver(ctx context.Context, sub contact.Submission) error {
	r := row{
		ID:          sub.ID,
		FullName:    sub.Fields.Name,
		Email:       sub.Fields.Email,
		Phone:       sub.Fields.Phone,
		Message:     sub.Fields.Message,
		ClientIP:    sub.Meta.ClientIP,
		UserAgent:   truncate(sub.Meta.UserAgent, 512),
		Country:     sub.Meta.Country,
		SubmittedAt: sub.SubmittedAt.UTC(),
	}

	_, err := s.DB.NamedExecContext(ctx, s.insertSQL(), r)
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return nil
	}
	return fmt.Errorf("insert %s: %w", sub.ID, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
