// Package postgresdb provides the PostgreSQL-based implementation of the
// storage interface for persisting users, links and their visit logs.
// Schema management is delegated to goose migrations.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/t5krishn/tinyapp/internal/db/storage"
	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/user"
)

// PostgresDB is a PostgreSQL-backed implementation of the storage contract.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// New connects to PostgreSQL, runs schema migrations and returns
// a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.Up(database, migrationsDir); err != nil {
		return nil, fmt.Errorf("error while `goose.Up()` calling: %w", err)
	}

	return result, nil
}

// CreateUser inserts a new user record. A taken email yields
// storage.ErrEmailExists.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) error {
	result, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO users (id, email, password_hash)
				VALUES ($1, $2, $3)
				ON CONFLICT (email) DO NOTHING
		`,
		usr.ID,
		usr.Email,
		usr.PasswordHash,
	)
	if err != nil {
		return err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		return storage.ErrEmailExists
	}

	return nil
}

func (db *PostgresDB) getUserBy(ctx context.Context, condition, value string) (*user.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, email, password_hash FROM users WHERE `+condition+` = $1`,
		value,
	)

	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Email, &usr.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return usr, true, nil
}

// GetUserByID fetches a user by id.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	return db.getUserBy(ctx, "id", userID)
}

// GetUserByEmail fetches a user by email, case-sensitive.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	return db.getUserBy(ctx, "email", email)
}

// SaveLink inserts a new link. A taken short code yields
// storage.ErrShortCodeExists; the unique constraint makes the
// check-and-insert atomic.
func (db *PostgresDB) SaveLink(ctx context.Context, link *models.Link) error {
	result, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO links (short_code, long_url, owner_id, created_on)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (short_code) DO NOTHING
		`,
		link.ShortCode,
		link.LongURL,
		link.OwnerID,
		link.CreatedOn,
	)
	if err != nil {
		return err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		return storage.ErrShortCodeExists
	}

	return nil
}

func (db *PostgresDB) loadVisitLog(ctx context.Context, database queryer, shortCode string) (models.VisitLog, error) {
	log := models.NewVisitLog()

	rows, err := database.QueryContext(
		ctx,
		`
			SELECT visitor_id, visited_at
				FROM link_visits
				WHERE short_code = $1
				ORDER BY id
		`,
		shortCode,
	)
	if err != nil {
		return log, err
	}
	defer rows.Close()

	for rows.Next() {
		var visit models.Visit
		if err := rows.Scan(&visit.VisitorID, &visit.Time); err != nil {
			return log, err
		}
		log.Events = append(log.Events, visit)
		log.Count++
		log.UniqueVisitors[visit.VisitorID] = true
	}

	return log, rows.Err()
}

// GetLink fetches a link with its full visit log.
func (db *PostgresDB) GetLink(ctx context.Context, shortCode string) (*models.Link, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT short_code, long_url, owner_id, created_on FROM links WHERE short_code = $1`,
		shortCode,
	)

	link := &models.Link{}
	err := row.Scan(&link.ShortCode, &link.LongURL, &link.OwnerID, &link.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	link.Visits, err = db.loadVisitLog(ctx, db.database, shortCode)
	if err != nil {
		return nil, false, err
	}

	return link, true, nil
}

// IsShortCodeTaken reports whether a link exists for the short code.
func (db *PostgresDB) IsShortCodeTaken(ctx context.Context, shortCode string) (bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`,
		shortCode,
	)

	var taken bool
	if err := row.Scan(&taken); err != nil {
		return false, err
	}

	return taken, nil
}

// UpdateLinkURL replaces the long URL of an existing link.
func (db *PostgresDB) UpdateLinkURL(ctx context.Context, shortCode, longURL string) error {
	result, err := db.database.ExecContext(
		ctx,
		`UPDATE links SET long_url = $2 WHERE short_code = $1`,
		shortCode,
		longURL,
	)
	if err != nil {
		return err
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if updated == 0 {
		return models.ErrLinkNotFound
	}

	return nil
}

// DeleteLink removes the link; its visit log rows go with it via cascade.
func (db *PostgresDB) DeleteLink(ctx context.Context, shortCode string) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM links WHERE short_code = $1`,
		shortCode,
	)
	if err != nil {
		return err
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return models.ErrLinkNotFound
	}

	return nil
}

// ListLinksByOwner returns the owner's links in insertion order,
// visit logs included.
func (db *PostgresDB) ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT short_code, long_url, owner_id, created_on
				FROM links
				WHERE owner_id = $1
				ORDER BY position
		`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*models.Link{}
	for rows.Next() {
		link := &models.Link{}
		if err := rows.Scan(&link.ShortCode, &link.LongURL, &link.OwnerID, &link.CreatedOn); err != nil {
			return nil, err
		}
		result = append(result, link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, link := range result {
		link.Visits, err = db.loadVisitLog(ctx, db.database, link.ShortCode)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// RecordVisit appends a dereference event within a transaction. The link row
// is locked first so concurrent first-visits from the same visitor cannot
// double-count uniqueness.
func (db *PostgresDB) RecordVisit(ctx context.Context, shortCode, visitorID string, at time.Time) error {
	transaction, err := db.database.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = transaction.Rollback()
	}()

	row := transaction.QueryRowContext(
		ctx,
		`SELECT short_code FROM links WHERE short_code = $1 FOR UPDATE`,
		shortCode,
	)
	var locked string
	err = row.Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrLinkNotFound
	}
	if err != nil {
		return err
	}

	_, err = transaction.ExecContext(
		ctx,
		`INSERT INTO link_visits (short_code, visitor_id, visited_at) VALUES ($1, $2, $3)`,
		shortCode,
		visitorID,
		at,
	)
	if err != nil {
		return err
	}

	_, err = transaction.ExecContext(
		ctx,
		`
			INSERT INTO link_unique_visitors (short_code, visitor_id)
				VALUES ($1, $2)
				ON CONFLICT (short_code, visitor_id) DO NOTHING
		`,
		shortCode,
		visitorID,
	)
	if err != nil {
		return err
	}

	return transaction.Commit()
}

// GetNumberOfLinks returns the total amount of stored links.
func (db *PostgresDB) GetNumberOfLinks(ctx context.Context) (int64, error) {
	return db.countRows(ctx, "links")
}

// GetNumberOfUsers returns the total amount of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.countRows(ctx, "users")
}

func (db *PostgresDB) countRows(ctx context.Context, table string) (int64, error) {
	row := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// Ping checks the database connection.
func (db *PostgresDB) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(pingCtx)
}

// Flush is a no-op; every write is already durable.
func (db *PostgresDB) Flush(ctx context.Context) error {
	return nil
}

// Close releases the connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}
