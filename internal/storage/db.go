package storage

import (
	"database/sql"
	"errors"
	"strings"

	"finance-tracker/internal/models"

	"github.com/shopspring/decimal"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var (
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned when a row does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			amount TEXT NOT NULL,
			type TEXT NOT NULL,
			date TEXT NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id)
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Reset drops and recreates the schema, destroying all data. It must only
// run as an explicit operator action, never as part of normal startup.
func (db *DB) Reset() error {
	drops := []string{
		`DROP TABLE IF EXISTS transactions`,
		`DROP TABLE IF EXISTS users`,
	}
	for _, d := range drops {
		if _, err := db.conn.Exec(d); err != nil {
			return err
		}
	}
	return db.migrate()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser persists a new user. Returns ErrDuplicateEmail if the email is taken.
func (db *DB) CreateUser(name, email, passwordHash string) (*models.User, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)",
		name, email, passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.User{ID: id, Name: name, Email: email, PasswordHash: passwordHash}, nil
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, password_hash FROM users WHERE email = ?",
		email,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, password_hash FROM users WHERE id = ?",
		id,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateTransaction inserts a new transaction owned by ownerID. The insert is
// committed or rolled back as a unit.
func (db *DB) CreateTransaction(ownerID int64, text string, amount decimal.Decimal, typ models.TransactionType, date models.Date) (*models.Transaction, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO transactions (text, amount, type, date, user_id) VALUES (?, ?, ?, ?, ?)",
		text, amount.String(), string(typ), date.String(), ownerID,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.Transaction{
		ID:     id,
		Text:   text,
		Amount: amount,
		Type:   typ,
		Date:   date,
		UserID: ownerID,
	}, nil
}

// ListTransactions retrieves all transactions owned by ownerID in insertion
// order. The result is never nil, so an owner with no rows gets an empty slice.
func (db *DB) ListTransactions(ownerID int64) ([]models.Transaction, error) {
	rows, err := db.conn.Query(
		"SELECT id, text, amount, type, date, user_id FROM transactions WHERE user_id = ? ORDER BY id",
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var (
			t            models.Transaction
			amount, date string
		)
		if err := rows.Scan(&t.ID, &t.Text, &amount, &t.Type, &date, &t.UserID); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if t.Date, err = models.ParseDate(date); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

// DeleteTransaction removes the transaction only if it exists and is owned by
// ownerID; otherwise it returns ErrNotFound and leaves the row intact.
func (db *DB) DeleteTransaction(ownerID, id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"DELETE FROM transactions WHERE id = ? AND user_id = ?",
		id, ownerID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
