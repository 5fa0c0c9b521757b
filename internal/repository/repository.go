// Package repository stores contacts in the relational table created by the database package.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/dirk.krummacker/contact-intake/internal/model"
)

// ErrNotFound is returned by GetByID when no contact has the requested id.
var ErrNotFound = errors.New("contact not found")

func init() {
	// modernc.org/sqlite registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Repository is a handle to the contacts table. It is safe for concurrent use.
type Repository struct {
	db *sqlx.DB

	// returning is set for drivers without LastInsertId support.
	returning bool

	// insert is a prepared statement for creating a contact on the database.
	insert *sqlx.NamedStmt

	// selectWhereId is a prepared statement for selecting the contact with a given id.
	selectWhereId *sqlx.Stmt
}

// New wraps the specified sql database with sqlx and prepares all statements. The database
// argument can be a real database for production use or a mock database within unit tests.
// driverName is the database/sql driver name ("mysql", "pgx" or "sqlite").
func New(sqlDB *sql.DB, driverName string) (*Repository, error) {
	db := sqlx.NewDb(sqlDB, driverName)
	r := &Repository{
		db:        db,
		returning: sqlx.BindType(driverName) == sqlx.DOLLAR,
	}

	query := `
		INSERT INTO contacts (first_name, last_name, email, photo_path, pdf_path)
		VALUES (:first_name, :last_name, :email, :photo_path, :pdf_path)`
	if r.returning {
		query += " RETURNING id"
	}

	var err error
	r.insert, err = db.PrepareNamed(query)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	r.selectWhereId, err = db.Preparex(db.Rebind(`
		SELECT * FROM contacts WHERE id = ?
	`))
	if err != nil {
		r.insert.Close()
		return nil, fmt.Errorf("prepare select: %w", err)
	}
	return r, nil
}

// Insert creates a contact and returns the id assigned by the database.
func (r *Repository) Insert(ctx context.Context, c model.NewContact) (int64, error) {
	if r.returning {
		var id int64
		if err := r.insert.GetContext(ctx, &id, c); err != nil {
			return 0, fmt.Errorf("insert contact: %w", err)
		}
		return id, nil
	}

	result, err := r.insert.ExecContext(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read contact id: %w", err)
	}
	return id, nil
}

// GetByID returns the contact with the given id or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (model.Contact, error) {
	var contact model.Contact
	err := r.selectWhereId.GetContext(ctx, &contact, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("select contact %d: %w", id, err)
	}
	return contact, nil
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the prepared statements. The underlying pool is owned by the caller.
func (r *Repository) Close() error {
	return errors.Join(r.insert.Close(), r.selectWhereId.Close())
}
