package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLStore is the alternative snapshot backend: the same four collections
// kept as SQLite tables instead of text files. Save replaces the whole
// snapshot in one transaction.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (or creates) the SQLite database at dbPath and applies
// the schema.
func NewSQLStore(dbPath string) (*SQLStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }

func applySchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            category TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            borrowed BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS readers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            kind TEXT NOT NULL,
            name TEXT NOT NULL,
            fine REAL NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_title TEXT NOT NULL,
            reader_name TEXT NOT NULL,
            borrowed_at INTEGER NOT NULL,
            due_at INTEGER NOT NULL,
            returned_at INTEGER NOT NULL DEFAULT 0,
            returned BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            role TEXT NOT NULL,
            username TEXT NOT NULL,
            password TEXT NOT NULL,
            reader_name TEXT NOT NULL DEFAULT ''
        );`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Save replaces the stored snapshot with the given state atomically.
func (s *SQLStore) Save(state State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"books", "readers", "records", "users"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, b := range state.Books {
		if _, err := tx.Exec(`INSERT INTO books(category,title,author,borrowed) VALUES(?,?,?,?)`,
			string(b.Category), b.Title, b.Author, b.Borrowed); err != nil {
			return fmt.Errorf("save book %q: %w", b.Title, err)
		}
	}
	for _, r := range state.Readers {
		if _, err := tx.Exec(`INSERT INTO readers(kind,name,fine) VALUES(?,?,?)`,
			string(r.Kind), r.Name, r.Fine); err != nil {
			return fmt.Errorf("save reader %q: %w", r.Name, err)
		}
	}
	for _, r := range state.Records {
		var retEpoch int64
		if r.Returned {
			retEpoch = r.ReturnedAt.Unix()
		}
		if _, err := tx.Exec(`INSERT INTO records(book_title,reader_name,borrowed_at,due_at,returned_at,returned) VALUES(?,?,?,?,?,?)`,
			r.BookTitle, r.ReaderName, r.BorrowedAt.Unix(), r.DueAt.Unix(), retEpoch, r.Returned); err != nil {
			return fmt.Errorf("save record %q/%q: %w", r.BookTitle, r.ReaderName, err)
		}
	}
	for _, u := range state.Users {
		if _, err := tx.Exec(`INSERT INTO users(role,username,password,reader_name) VALUES(?,?,?,?)`,
			string(u.Role), u.Username, u.Password, u.ReaderName); err != nil {
			return fmt.Errorf("save user %q: %w", u.Username, err)
		}
	}

	return tx.Commit()
}

// Load reads the whole snapshot back in insertion order.
func (s *SQLStore) Load() (State, error) {
	var state State

	rows, err := s.db.Query(`SELECT category,title,author,borrowed FROM books ORDER BY id`)
	if err != nil {
		return State{}, fmt.Errorf("load books: %w", err)
	}
	for rows.Next() {
		var b Book
		var category string
		if err := rows.Scan(&category, &b.Title, &b.Author, &b.Borrowed); err != nil {
			rows.Close()
			return State{}, err
		}
		b.Category = Category(category)
		state.Books = append(state.Books, &b)
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT kind,name,fine FROM readers ORDER BY id`)
	if err != nil {
		return State{}, fmt.Errorf("load readers: %w", err)
	}
	for rows.Next() {
		var kind string
		var r Reader
		if err := rows.Scan(&kind, &r.Name, &r.Fine); err != nil {
			rows.Close()
			return State{}, err
		}
		r.Kind = ParseReaderKind(kind)
		state.Readers = append(state.Readers, &r)
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT book_title,reader_name,borrowed_at,due_at,returned_at,returned FROM records ORDER BY id`)
	if err != nil {
		return State{}, fmt.Errorf("load records: %w", err)
	}
	for rows.Next() {
		var rec BorrowRecord
		var borrow, due, ret int64
		var returned bool
		if err := rows.Scan(&rec.BookTitle, &rec.ReaderName, &borrow, &due, &ret, &returned); err != nil {
			rows.Close()
			return State{}, err
		}
		rec.BorrowedAt = epochTime(borrow)
		rec.DueAt = epochTime(due)
		if returned {
			rec.Close(epochTime(ret))
		}
		state.Records = append(state.Records, &rec)
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT role,username,password,reader_name FROM users ORDER BY id`)
	if err != nil {
		return State{}, fmt.Errorf("load users: %w", err)
	}
	for rows.Next() {
		var role string
		var u User
		if err := rows.Scan(&role, &u.Username, &u.Password, &u.ReaderName); err != nil {
			rows.Close()
			return State{}, err
		}
		u.Role = Role(role)
		state.Users = append(state.Users, &u)
	}
	rows.Close()

	return state, nil
}
