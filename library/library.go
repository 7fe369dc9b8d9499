package library

import (
	"fmt"
	"time"
)

const defaultDueSoonDays = 3

// Policy carries the tunable circulation rules.
type Policy struct {
	// BlockOnFines refuses new loans while the reader owes a fine.
	// When false the outstanding balance is only reported to the caller.
	BlockOnFines bool
	// DueSoonDays is the default window for DueSoon queries.
	DueSoonDays int
}

// Library owns the catalog, the patron directory, the borrow ledger and
// the account list, and enforces the circulation rules across them.
// Collections keep insertion order and are keyed by title / name.
//
// All operations run synchronously; the Library is not safe for
// concurrent use.
type Library struct {
	books   []*Book
	readers []*Reader
	records []*BorrowRecord
	users   []*User

	policy Policy
	now    func() time.Time
}

// NewLibrary creates an empty library with the given policy.
func NewLibrary(policy Policy) *Library {
	if policy.DueSoonDays <= 0 {
		policy.DueSoonDays = defaultDueSoonDays
	}
	return &Library{policy: policy, now: time.Now}
}

// WithClock overrides the wall clock; fixed clocks keep tests deterministic.
func (l *Library) WithClock(now func() time.Time) *Library {
	l.now = now
	return l
}

// ---------------------------------------------------------------------------
// Catalog management
// ---------------------------------------------------------------------------

// AddBook appends a new catalog entry. Duplicate titles are rejected so
// that title-keyed lookups stay deterministic.
func (l *Library) AddBook(title, author string, category Category) (*Book, error) {
	if title == "" {
		return nil, fmt.Errorf("add book: empty title: %w", ErrInvalidInput)
	}
	if l.findBook(title) != nil {
		return nil, fmt.Errorf("add book %q: %w", title, ErrDuplicateTitle)
	}
	if category == "" {
		category = CategoryNovel
	}
	b := &Book{Title: title, Author: author, Category: category}
	l.books = append(l.books, b)
	return b, nil
}

// RemoveBook deletes the catalog entry with the given title. A book with
// an open loan cannot be removed.
func (l *Library) RemoveBook(title string) error {
	if l.findBook(title) == nil {
		return fmt.Errorf("remove book %q: %w", title, ErrBookNotFound)
	}
	if l.openRecordForBook(title) != nil {
		return fmt.Errorf("remove book %q: %w", title, ErrOnLoan)
	}
	kept := l.books[:0]
	for _, b := range l.books {
		if b.Title != title {
			kept = append(kept, b)
		}
	}
	l.books = kept
	return nil
}

// ---------------------------------------------------------------------------
// Patron management
// ---------------------------------------------------------------------------

// AddReader registers a new patron. Duplicate names are rejected.
func (l *Library) AddReader(name string, kind ReaderKind) (*Reader, error) {
	if name == "" {
		return nil, fmt.Errorf("add reader: empty name: %w", ErrInvalidInput)
	}
	if l.findReader(name) != nil {
		return nil, fmt.Errorf("add reader %q: %w", name, ErrDuplicateReader)
	}
	r := &Reader{Name: name, Kind: ParseReaderKind(string(kind))}
	l.readers = append(l.readers, r)
	return r, nil
}

// RemoveReader deletes a patron. Readers with open loans or an unpaid
// fine cannot be removed.
func (l *Library) RemoveReader(name string) error {
	r := l.findReader(name)
	if r == nil {
		return fmt.Errorf("remove reader %q: %w", name, ErrReaderNotFound)
	}
	if l.openRecordForReader(name) != nil {
		return fmt.Errorf("remove reader %q: %w", name, ErrOnLoan)
	}
	if r.Fine > 0 {
		return fmt.Errorf("remove reader %q owes %.2f: %w", name, r.Fine, ErrOutstandingFine)
	}
	kept := l.readers[:0]
	for _, rr := range l.readers {
		if rr.Name != name {
			kept = append(kept, rr)
		}
	}
	l.readers = kept
	return nil
}

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

// BorrowResult reports a successful loan. OutstandingFine carries the
// reader's unpaid balance at borrow time as a non-fatal warning for the
// caller; it never blocks the loan unless Policy.BlockOnFines is set.
type BorrowResult struct {
	Record          *BorrowRecord
	OutstandingFine float64
}

// BorrowBook lends the book to the reader and appends an open record with
// a due date one loan period from now.
func (l *Library) BorrowBook(title, readerName string) (BorrowResult, error) {
	book := l.findBook(title)
	if book == nil {
		return BorrowResult{}, fmt.Errorf("borrow %q: %w", title, ErrBookNotFound)
	}
	reader := l.findReader(readerName)
	if reader == nil {
		return BorrowResult{}, fmt.Errorf("borrow %q by %q: %w", title, readerName, ErrReaderNotFound)
	}
	if book.Borrowed {
		return BorrowResult{}, fmt.Errorf("borrow %q: %w", title, ErrAlreadyBorrowed)
	}
	if reader.Fine > 0 && l.policy.BlockOnFines {
		return BorrowResult{}, fmt.Errorf("borrow %q by %q owing %.2f: %w",
			title, readerName, reader.Fine, ErrOutstandingFine)
	}

	now := l.now()
	book.Borrowed = true
	rec := &BorrowRecord{
		BookTitle:  book.Title,
		ReaderName: reader.Name,
		BorrowedAt: now,
		DueAt:      now.Add(time.Duration(reader.LoanPeriodDays()) * secondsPerDay * time.Second),
	}
	l.records = append(l.records, rec)
	return BorrowResult{Record: rec, OutstandingFine: reader.Fine}, nil
}

// ReturnResult reports a completed return and any fine accrued by it.
type ReturnResult struct {
	Record      *BorrowRecord
	OverdueDays int
	Fine        float64
}

// ReturnBook closes the first open record for the book/reader pair,
// clears the borrowed flag and, if the loan ran past its due date, adds
// the fine to the reader's balance.
func (l *Library) ReturnBook(title, readerName string) (ReturnResult, error) {
	book := l.findBook(title)
	if book == nil {
		return ReturnResult{}, fmt.Errorf("return %q: %w", title, ErrBookNotFound)
	}
	reader := l.findReader(readerName)
	if reader == nil {
		return ReturnResult{}, fmt.Errorf("return %q by %q: %w", title, readerName, ErrReaderNotFound)
	}

	var rec *BorrowRecord
	for _, r := range l.records {
		if r.Open() && r.BookTitle == book.Title && r.ReaderName == reader.Name {
			rec = r
			break
		}
	}
	if rec == nil {
		return ReturnResult{}, fmt.Errorf("return %q by %q: %w", title, readerName, ErrNotBorrowed)
	}

	now := l.now()
	rec.Close(now)
	book.Borrowed = false

	res := ReturnResult{Record: rec, OverdueDays: rec.OverdueDays(now)}
	if res.OverdueDays > 0 {
		res.Fine = rec.Fine(book, reader, now)
		if err := reader.AddFine(res.Fine); err != nil {
			return ReturnResult{}, err
		}
	}
	return res, nil
}

// Payment reports how much of a fine was settled and what remains.
type Payment struct {
	Paid      float64
	Remaining float64
}

// PayFine settles part or all of a reader's fine. A negative amount means
// pay in full; an amount beyond the balance is capped at the balance, so
// the balance never goes negative.
func (l *Library) PayFine(readerName string, amount float64) (Payment, error) {
	reader := l.findReader(readerName)
	if reader == nil {
		return Payment{}, fmt.Errorf("pay fine for %q: %w", readerName, ErrReaderNotFound)
	}
	owed := reader.Fine
	if owed <= 0 {
		return Payment{}, nil
	}
	if amount < 0 || amount > owed {
		reader.PayFullFine()
		return Payment{Paid: owed}, nil
	}
	if err := reader.PayFine(amount); err != nil {
		return Payment{}, err
	}
	return Payment{Paid: amount, Remaining: reader.Fine}, nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Books lists the catalog in insertion order.
func (l *Library) Books() []*Book {
	out := make([]*Book, len(l.books))
	copy(out, l.books)
	return out
}

// Readers lists the patron directory in insertion order.
func (l *Library) Readers() []*Reader {
	out := make([]*Reader, len(l.readers))
	copy(out, l.readers)
	return out
}

// Records lists the full ledger, current and historical.
func (l *Library) Records() []*BorrowRecord {
	out := make([]*BorrowRecord, len(l.records))
	copy(out, l.records)
	return out
}

// BookDetail pairs a catalog entry with its ledger history.
type BookDetail struct {
	Book    *Book
	History []*BorrowRecord
}

// SearchBook finds a book by exact title and attaches its borrow history.
func (l *Library) SearchBook(title string) (BookDetail, error) {
	book := l.findBook(title)
	if book == nil {
		return BookDetail{}, fmt.Errorf("search book %q: %w", title, ErrBookNotFound)
	}
	d := BookDetail{Book: book}
	for _, r := range l.records {
		if r.BookTitle == book.Title {
			d.History = append(d.History, r)
		}
	}
	return d, nil
}

// ReaderDetail pairs a patron with their ledger history.
type ReaderDetail struct {
	Reader  *Reader
	History []*BorrowRecord
}

// SearchReader finds a reader by exact name and attaches their history.
func (l *Library) SearchReader(name string) (ReaderDetail, error) {
	reader := l.findReader(name)
	if reader == nil {
		return ReaderDetail{}, fmt.Errorf("search reader %q: %w", name, ErrReaderNotFound)
	}
	d := ReaderDetail{Reader: reader}
	for _, r := range l.records {
		if r.ReaderName == reader.Name {
			d.History = append(d.History, r)
		}
	}
	return d, nil
}

// OverdueRecords lists the open records already past their due date.
func (l *Library) OverdueRecords() []*BorrowRecord {
	now := l.now()
	var out []*BorrowRecord
	for _, r := range l.records {
		if r.Open() && r.OverdueDays(now) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// DueSoon lists the open records falling due within the next `days` whole
// days, inclusive of today. days <= 0 selects the policy default.
func (l *Library) DueSoon(days int) []*BorrowRecord {
	if days <= 0 {
		days = l.policy.DueSoonDays
	}
	now := l.now()
	var out []*BorrowRecord
	for _, r := range l.records {
		if !r.Open() {
			continue
		}
		if left := r.DaysUntilDue(now); left >= 0 && left <= days {
			out = append(out, r)
		}
	}
	return out
}

// Now exposes the service clock so callers render overdue state against
// the same time the service reasons with.
func (l *Library) Now() time.Time { return l.now() }

// RecordFine resolves a record's book and reader and computes its accrued
// fine as of now. Records whose book or reader is gone resolve to zero.
func (l *Library) RecordFine(rec *BorrowRecord) float64 {
	book := l.findBook(rec.BookTitle)
	reader := l.findReader(rec.ReaderName)
	if book == nil || reader == nil {
		return 0
	}
	return rec.Fine(book, reader, l.now())
}

// CountBooks returns the catalog size.
func (l *Library) CountBooks() int { return len(l.books) }

// CountReaders returns the patron directory size.
func (l *Library) CountReaders() int { return len(l.readers) }

// CountBorrowedBooks returns how many catalog entries are out on loan.
func (l *Library) CountBorrowedBooks() int {
	n := 0
	for _, b := range l.books {
		if b.Borrowed {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// EnsureAdmin guarantees an administrator account with the given username
// exists, creating it with the given password if absent.
func (l *Library) EnsureAdmin(username, password string) *User {
	if u := l.findUser(username); u != nil {
		return u
	}
	u := &User{Username: username, Password: password, Role: RoleAdmin}
	l.users = append(l.users, u)
	return u
}

// RegisterAdmin creates a new administrator account.
func (l *Library) RegisterAdmin(username, password string) (*User, error) {
	if err := l.checkNewAccount(username, password); err != nil {
		return nil, err
	}
	u := &User{Username: username, Password: password, Role: RoleAdmin}
	l.users = append(l.users, u)
	return u, nil
}

// RegisterReaderUser creates a patron account together with the Reader it
// represents.
func (l *Library) RegisterReaderUser(username, password, readerName string, kind ReaderKind) (*User, error) {
	if err := l.checkNewAccount(username, password); err != nil {
		return nil, err
	}
	if _, err := l.AddReader(readerName, kind); err != nil {
		return nil, err
	}
	u := &User{Username: username, Password: password, Role: RoleReader, ReaderName: readerName}
	l.users = append(l.users, u)
	return u, nil
}

func (l *Library) checkNewAccount(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("register: empty username or password: %w", ErrInvalidInput)
	}
	if l.findUser(username) != nil {
		return fmt.Errorf("register %q: %w", username, ErrDuplicateUser)
	}
	return nil
}

// Login resolves the account by username and verifies the password by
// exact comparison.
func (l *Library) Login(username, password string) (*User, error) {
	u := l.findUser(username)
	if u == nil {
		return nil, fmt.Errorf("login %q: %w", username, ErrUserNotFound)
	}
	if !u.VerifyPassword(password) {
		return nil, fmt.Errorf("login %q: wrong password: %w", username, ErrInvalidInput)
	}
	return u, nil
}

// Users lists every account. Admin only.
func (l *Library) Users(actor *User) ([]*User, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, fmt.Errorf("list users: %w", ErrPermissionDenied)
	}
	out := make([]*User, len(l.users))
	copy(out, l.users)
	return out, nil
}

// DeleteUser removes an account. Admin only.
func (l *Library) DeleteUser(actor *User, username string) error {
	if actor == nil || !actor.IsAdmin() {
		return fmt.Errorf("delete user %q: %w", username, ErrPermissionDenied)
	}
	if l.findUser(username) == nil {
		return fmt.Errorf("delete user %q: %w", username, ErrUserNotFound)
	}
	kept := l.users[:0]
	for _, u := range l.users {
		if u.Username != username {
			kept = append(kept, u)
		}
	}
	l.users = kept
	return nil
}

// ReaderFor resolves a patron account's weak reference to its Reader.
func (l *Library) ReaderFor(u *User) (*Reader, error) {
	if u == nil || u.ReaderName == "" {
		return nil, fmt.Errorf("account has no reader: %w", ErrReaderNotFound)
	}
	r := l.findReader(u.ReaderName)
	if r == nil {
		return nil, fmt.Errorf("reader %q for account %q: %w", u.ReaderName, u.Username, ErrReaderNotFound)
	}
	return r, nil
}

// ---------------------------------------------------------------------------
// State bridging
// ---------------------------------------------------------------------------

// State is the full persistable snapshot of a library.
type State struct {
	Books   []*Book         `json:"books"`
	Readers []*Reader       `json:"readers"`
	Records []*BorrowRecord `json:"records"`
	Users   []*User         `json:"users"`
}

// Snapshot captures the current collections for persistence.
func (l *Library) Snapshot() State {
	users := make([]*User, len(l.users))
	copy(users, l.users)
	return State{
		Books:   l.Books(),
		Readers: l.Readers(),
		Records: l.Records(),
		Users:   users,
	}
}

// Restore replaces the collections from a loaded snapshot. Records whose
// book or reader is missing, and patron accounts whose reader is missing,
// are silently dropped, matching the load contract.
func (l *Library) Restore(s State) {
	l.books = s.Books
	l.readers = s.Readers

	l.records = l.records[:0]
	for _, r := range s.Records {
		if l.findBook(r.BookTitle) != nil && l.findReader(r.ReaderName) != nil {
			l.records = append(l.records, r)
		}
	}

	l.users = l.users[:0]
	for _, u := range s.Users {
		if u.Role == RoleReader && l.findReader(u.ReaderName) == nil {
			continue
		}
		l.users = append(l.users, u)
	}
}

// ---------------------------------------------------------------------------
// Lookup helpers
// ---------------------------------------------------------------------------

func (l *Library) findBook(title string) *Book {
	for _, b := range l.books {
		if b.Title == title {
			return b
		}
	}
	return nil
}

func (l *Library) findReader(name string) *Reader {
	for _, r := range l.readers {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (l *Library) findUser(username string) *User {
	for _, u := range l.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (l *Library) openRecordForBook(title string) *BorrowRecord {
	for _, r := range l.records {
		if r.Open() && r.BookTitle == title {
			return r
		}
	}
	return nil
}

func (l *Library) openRecordForReader(name string) *BorrowRecord {
	for _, r := range l.records {
		if r.Open() && r.ReaderName == name {
			return r
		}
	}
	return nil
}
