package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Store persists a full snapshot of the library state. Persistence is a
// whole-collection dump and reload at process boundaries, not an
// incremental log.
type Store interface {
	Load() (State, error)
	Save(State) error
	Close() error
}

// Per-collection file names inside the data directory.
const (
	booksFile   = "books.txt"
	readersFile = "readers.txt"
	recordsFile = "records.txt"
	usersFile   = "users.txt"
)

// FileStore keeps each collection in a comma-delimited text file, one
// entity per line. Fields containing the delimiter are quoted on write
// and unquoted on read; delimiter-free data stays byte-compatible with
// the plain format.
type FileStore struct {
	dir string
}

// NewFileStore prepares a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Close() error { return nil }

// Save writes the four collection files. Load order on the way back in is
// books, readers, records, users, so records and accounts can re-link.
func (s *FileStore) Save(state State) error {
	if err := s.writeFile(booksFile, encodeBooks(state.Books)); err != nil {
		return fmt.Errorf("save books: %w", err)
	}
	if err := s.writeFile(readersFile, encodeReaders(state.Readers)); err != nil {
		return fmt.Errorf("save readers: %w", err)
	}
	if err := s.writeFile(recordsFile, encodeRecords(state.Records)); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	if err := s.writeFile(usersFile, encodeUsers(state.Users)); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// Load reads whatever collection files exist. A missing file yields an
// empty collection; a malformed line is skipped.
func (s *FileStore) Load() (State, error) {
	var state State

	rows, err := s.readFile(booksFile)
	if err != nil {
		return State{}, fmt.Errorf("load books: %w", err)
	}
	for _, row := range rows {
		if b, err := decodeBook(row); err == nil {
			state.Books = append(state.Books, b)
		}
	}

	rows, err = s.readFile(readersFile)
	if err != nil {
		return State{}, fmt.Errorf("load readers: %w", err)
	}
	for _, row := range rows {
		if r, err := decodeReader(row); err == nil {
			state.Readers = append(state.Readers, r)
		}
	}

	rows, err = s.readFile(recordsFile)
	if err != nil {
		return State{}, fmt.Errorf("load records: %w", err)
	}
	for _, row := range rows {
		if r, err := decodeRecord(row); err == nil {
			state.Records = append(state.Records, r)
		}
	}

	rows, err = s.readFile(usersFile)
	if err != nil {
		return State{}, fmt.Errorf("load users: %w", err)
	}
	for _, row := range rows {
		if u, err := decodeUser(row); err == nil {
			state.Users = append(state.Users, u)
		}
	}

	return state, nil
}

func (s *FileStore) writeFile(name string, rows [][]string) error {
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) readFile(name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // malformed line, skip
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ---------------------------------------------------------------------------
// Codec: fixed field order per entity kind
// ---------------------------------------------------------------------------

// book line: category,title,author,borrowed(0|1)
func encodeBooks(books []*Book) [][]string {
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{string(b.Category), b.Title, b.Author, boolField(b.Borrowed)})
	}
	return rows
}

func decodeBook(f []string) (*Book, error) {
	if len(f) != 4 {
		return nil, fmt.Errorf("book line has %d fields: %w", len(f), ErrInvalidInput)
	}
	return &Book{
		Category: Category(f[0]),
		Title:    f[1],
		Author:   f[2],
		Borrowed: f[3] == "1",
	}, nil
}

// reader line: kindTag,name,loanPeriodDays,fineBalance
func encodeReaders(readers []*Reader) [][]string {
	rows := make([][]string, 0, len(readers))
	for _, r := range readers {
		rows = append(rows, []string{
			string(r.Kind),
			r.Name,
			strconv.Itoa(r.LoanPeriodDays()),
			strconv.FormatFloat(r.Fine, 'f', -1, 64),
		})
	}
	return rows
}

// decodeReader trusts the kind tag for the loan period; the stored
// loanPeriodDays field is written for readability only.
func decodeReader(f []string) (*Reader, error) {
	if len(f) != 4 {
		return nil, fmt.Errorf("reader line has %d fields: %w", len(f), ErrInvalidInput)
	}
	fine, err := strconv.ParseFloat(f[3], 64)
	if err != nil || fine < 0 {
		return nil, fmt.Errorf("reader fine %q: %w", f[3], ErrInvalidInput)
	}
	return &Reader{Name: f[1], Kind: ParseReaderKind(f[0]), Fine: fine}, nil
}

// record line: bookTitle,readerName,borrowEpoch,dueEpoch,returnEpoch,returned(0|1)
func encodeRecords(records []*BorrowRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		var retEpoch int64
		if r.Returned {
			retEpoch = r.ReturnedAt.Unix()
		}
		rows = append(rows, []string{
			r.BookTitle,
			r.ReaderName,
			strconv.FormatInt(r.BorrowedAt.Unix(), 10),
			strconv.FormatInt(r.DueAt.Unix(), 10),
			strconv.FormatInt(retEpoch, 10),
			boolField(r.Returned),
		})
	}
	return rows
}

func decodeRecord(f []string) (*BorrowRecord, error) {
	if len(f) != 6 {
		return nil, fmt.Errorf("record line has %d fields: %w", len(f), ErrInvalidInput)
	}
	borrow, err1 := strconv.ParseInt(f[2], 10, 64)
	due, err2 := strconv.ParseInt(f[3], 10, 64)
	ret, err3 := strconv.ParseInt(f[4], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("record timestamps: %w", ErrInvalidInput)
	}
	rec := &BorrowRecord{
		BookTitle:  f[0],
		ReaderName: f[1],
		BorrowedAt: epochTime(borrow),
		DueAt:      epochTime(due),
	}
	if f[5] == "1" {
		rec.Close(epochTime(ret))
	}
	return rec, nil
}

// user line: Administrator,username,password
//         or ReaderUser,username,password,readerName
func encodeUsers(users []*User) [][]string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		row := []string{string(u.Role), u.Username, u.Password}
		if u.Role == RoleReader {
			row = append(row, u.ReaderName)
		}
		rows = append(rows, row)
	}
	return rows
}

func decodeUser(f []string) (*User, error) {
	if len(f) < 3 {
		return nil, fmt.Errorf("user line has %d fields: %w", len(f), ErrInvalidInput)
	}
	switch Role(f[0]) {
	case RoleAdmin:
		return &User{Role: RoleAdmin, Username: f[1], Password: f[2]}, nil
	case RoleReader:
		if len(f) != 4 {
			return nil, fmt.Errorf("reader account line has %d fields: %w", len(f), ErrInvalidInput)
		}
		return &User{Role: RoleReader, Username: f[1], Password: f[2], ReaderName: f[3]}, nil
	default:
		return nil, fmt.Errorf("user kind %q: %w", f[0], ErrInvalidInput)
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
