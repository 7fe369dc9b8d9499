package library

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleState() State {
	borrow := time.Unix(1_700_000_000, 0).UTC()
	due := borrow.Add(30 * 24 * time.Hour)
	open := &BorrowRecord{BookTitle: "1984", ReaderName: "Alice", BorrowedAt: borrow, DueAt: due}
	closed := &BorrowRecord{BookTitle: "Nature Vol. 1", ReaderName: "Bob", BorrowedAt: borrow,
		DueAt: borrow.Add(60 * 24 * time.Hour)}
	closed.Close(borrow.Add(10 * 24 * time.Hour))

	return State{
		Books: []*Book{
			{Title: "1984", Author: "George Orwell", Category: CategoryNovel, Borrowed: true},
			{Title: "Calculus", Author: "Spivak", Category: CategoryTextbook},
			{Title: "Nature Vol. 1", Author: "Various", Category: CategoryMagazine},
			{Title: "Scrolls", Author: "Unknown", Category: Category("Manuscript")}, // tag kept verbatim
		},
		Readers: []*Reader{
			{Name: "Alice", Kind: KindRegular},
			{Name: "Bob", Kind: KindVIP, Fine: 3.6},
			{Name: "Carol", Kind: KindStudent, Fine: 0.5},
		},
		Records: []*BorrowRecord{open, closed},
		Users: []*User{
			{Username: "admin", Password: "admin123", Role: RoleAdmin},
			{Username: "alice", Password: "pw", Role: RoleReader, ReaderName: "Alice"},
		},
	}
}

func assertStateEqual(t *testing.T, want, got State) {
	t.Helper()
	if len(got.Books) != len(want.Books) {
		t.Fatalf("want %d books, got %d", len(want.Books), len(got.Books))
	}
	for i, w := range want.Books {
		g := got.Books[i]
		if *g != *w {
			t.Fatalf("book %d: want %+v, got %+v", i, w, g)
		}
	}
	if len(got.Readers) != len(want.Readers) {
		t.Fatalf("want %d readers, got %d", len(want.Readers), len(got.Readers))
	}
	for i, w := range want.Readers {
		g := got.Readers[i]
		if *g != *w {
			t.Fatalf("reader %d: want %+v, got %+v", i, w, g)
		}
	}
	if len(got.Records) != len(want.Records) {
		t.Fatalf("want %d records, got %d", len(want.Records), len(got.Records))
	}
	for i, w := range want.Records {
		g := got.Records[i]
		if g.BookTitle != w.BookTitle || g.ReaderName != w.ReaderName || g.Returned != w.Returned {
			t.Fatalf("record %d: want %+v, got %+v", i, w, g)
		}
		if g.BorrowedAt.Unix() != w.BorrowedAt.Unix() || g.DueAt.Unix() != w.DueAt.Unix() {
			t.Fatalf("record %d timestamps: want %+v, got %+v", i, w, g)
		}
		if w.Returned && g.ReturnedAt.Unix() != w.ReturnedAt.Unix() {
			t.Fatalf("record %d return time: want %v, got %v", i, w.ReturnedAt, g.ReturnedAt)
		}
	}
	if len(got.Users) != len(want.Users) {
		t.Fatalf("want %d users, got %d", len(want.Users), len(got.Users))
	}
	for i, w := range want.Users {
		g := got.Users[i]
		if *g != *w {
			t.Fatalf("user %d: want %+v, got %+v", i, w, g)
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	want := sampleState()
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertStateEqual(t, want, got)
}

// Titles containing the delimiter must survive the round trip; the
// writer quotes them instead of corrupting the line.
func TestFileStoreDelimiterInFields(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	want := State{
		Books: []*Book{
			{Title: "Go, Going, Gone", Author: "Smith, J.", Category: CategoryNovel},
		},
		Readers: []*Reader{{Name: "O'Level, Amy", Kind: KindStudent}},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Books) != 1 || got.Books[0].Title != "Go, Going, Gone" || got.Books[0].Author != "Smith, J." {
		t.Fatalf("bad round trip: %+v", got.Books)
	}
	if len(got.Readers) != 1 || got.Readers[0].Name != "O'Level, Amy" {
		t.Fatalf("bad round trip: %+v", got.Readers)
	}
}

// Delimiter-free data keeps the plain one-line-per-entity text shape.
func TestFileStorePlainFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save(sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, booksFile))
	if err != nil {
		t.Fatalf("read books file: %v", err)
	}
	first := strings.SplitN(string(data), "\n", 2)[0]
	if first != "Novel,1984,George Orwell,1" {
		t.Fatalf("unexpected book line: %q", first)
	}
}

func TestFileStoreMissingFilesYieldEmptyState(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	state, err := store.Load()
	if err != nil {
		t.Fatalf("load from empty dir: %v", err)
	}
	if len(state.Books)+len(state.Readers)+len(state.Records)+len(state.Users) != 0 {
		t.Fatalf("expected empty state, got %+v", state)
	}
}

func TestFileStoreSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	raw := strings.Join([]string{
		"Novel,1984,George Orwell,0",
		"this line is not a book",
		"Magazine,too,few",
		"Textbook,Calculus,Spivak,1",
	}, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, booksFile), []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	raw = "RegularMember,Alice,30,notanumber\nVIPMember,Bob,60,1.5\n"
	if err := os.WriteFile(filepath.Join(dir, readersFile), []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	state, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Books) != 2 {
		t.Fatalf("want 2 books after skips, got %d", len(state.Books))
	}
	if len(state.Readers) != 1 || state.Readers[0].Name != "Bob" {
		t.Fatalf("want only Bob after skips, got %+v", state.Readers)
	}
}

func TestDecodeReaderKindFallback(t *testing.T) {
	r, err := decodeReader([]string{"GoldMember", "Eve", "99", "0"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Kind != KindRegular {
		t.Fatalf("unknown kind should fall back to regular, got %s", r.Kind)
	}
	// The stored loan period is ignored; the kind tag is authoritative.
	if r.LoanPeriodDays() != 30 {
		t.Fatalf("want 30-day period, got %d", r.LoanPeriodDays())
	}
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store, err := NewSQLStore(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("new sql store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	want := sampleState()
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertStateEqual(t, want, got)

	// A second save replaces the snapshot instead of appending to it.
	if err := store.Save(want); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err = store.Load()
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	assertStateEqual(t, want, got)
}

func TestSnapshotRoundTrip(t *testing.T) {
	want := sampleState()
	data, err := EncodeSnapshot(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertStateEqual(t, want, got)
}
