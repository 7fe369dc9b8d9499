package library

import "time"

// One day is uniformly 86,400 seconds; no calendar or timezone awareness.
const secondsPerDay = 24 * 60 * 60

// epochTime converts stored epoch seconds back to a wall-clock time.
func epochTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// BorrowRecord is one entry in the append-only ledger. Book and reader are
// referenced by their natural keys so the graph can be rebuilt after a
// reload, not by embedded pointers.
type BorrowRecord struct {
	BookTitle  string    `json:"book_title"`
	ReaderName string    `json:"reader_name"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
	ReturnedAt time.Time `json:"returned_at,omitempty"`
	Returned   bool      `json:"returned"`
}

// Open reports whether the loan is still outstanding.
func (r *BorrowRecord) Open() bool { return !r.Returned }

// Close stamps the return time. A record is closed exactly once.
func (r *BorrowRecord) Close(at time.Time) {
	r.ReturnedAt = at
	r.Returned = true
}

// OverdueDays is the number of whole days past the due date, zero when the
// loan is on time. While the record is open the current time is the
// effective end; once closed the return time is.
func (r *BorrowRecord) OverdueDays(now time.Time) int {
	end := now
	if r.Returned {
		end = r.ReturnedAt
	}
	secs := end.Unix() - r.DueAt.Unix()
	if secs <= 0 {
		return 0
	}
	return int(secs / secondsPerDay)
}

// DaysUntilDue is the whole days remaining before the due date, truncated
// toward zero.
func (r *BorrowRecord) DaysUntilDue(now time.Time) int {
	return int((r.DueAt.Unix() - now.Unix()) / secondsPerDay)
}

// Fine computes the accrued fine: overdue days times the book's per-day
// rate times the reader's discount.
func (r *BorrowRecord) Fine(book *Book, reader *Reader, now time.Time) float64 {
	days := r.OverdueDays(now)
	if days <= 0 {
		return 0
	}
	return float64(days) * book.FinePerDay() * reader.FineDiscount()
}
