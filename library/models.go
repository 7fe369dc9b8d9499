package library

import "fmt"

// Category tags a book with its circulation class. The tag decides the
// per-day fine rate; unrecognized tags survive save/load verbatim and
// fine at the base rate.
type Category string

const (
	CategoryTextbook Category = "Textbook"
	CategoryNovel    Category = "Novel"
	CategoryMagazine Category = "Magazine"
)

// FinePerDay returns the base fine charged for each overdue day.
func (c Category) FinePerDay() float64 {
	switch c {
	case CategoryTextbook:
		return 2.0
	case CategoryMagazine:
		return 0.5
	default:
		return 1.0
	}
}

// Book represents one catalog entry. Title is the natural key used by all
// lookups; Borrowed mirrors whether an open borrow record references it.
type Book struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Category Category `json:"category"`
	Borrowed bool     `json:"borrowed"`
}

func (b *Book) FinePerDay() float64 { return b.Category.FinePerDay() }

// ReaderKind is the membership class of a patron. It fixes the loan
// period and the fine discount.
type ReaderKind string

const (
	KindRegular ReaderKind = "RegularMember"
	KindVIP     ReaderKind = "VIPMember"
	KindStudent ReaderKind = "StudentMember"
)

// ParseReaderKind maps a stored kind tag to a ReaderKind, falling back to
// the regular membership on anything unrecognized.
func ParseReaderKind(tag string) ReaderKind {
	switch ReaderKind(tag) {
	case KindVIP, KindStudent, KindRegular:
		return ReaderKind(tag)
	default:
		return KindRegular
	}
}

// LoanPeriodDays is how long a reader of this kind may keep a book.
func (k ReaderKind) LoanPeriodDays() int {
	switch k {
	case KindVIP:
		return 60
	case KindStudent:
		return 45
	default:
		return 30
	}
}

// FineDiscount is the multiplier applied to the base fine rate.
func (k ReaderKind) FineDiscount() float64 {
	switch k {
	case KindVIP:
		return 0.9
	case KindStudent:
		return 0.8
	default:
		return 1.0
	}
}

// Reader represents a registered patron. Name is the natural key; Fine is
// the accumulated unpaid balance and never goes negative.
type Reader struct {
	Name string     `json:"name"`
	Kind ReaderKind `json:"kind"`
	Fine float64    `json:"fine"`
}

func (r *Reader) LoanPeriodDays() int { return r.Kind.LoanPeriodDays() }

func (r *Reader) FineDiscount() float64 { return r.Kind.FineDiscount() }

// AddFine increases the balance. Negative amounts are rejected.
func (r *Reader) AddFine(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("add fine %.2f: %w", amount, ErrInvalidInput)
	}
	r.Fine += amount
	return nil
}

// PayFine deducts exactly amount from the balance. The amount must be
// non-negative and must not exceed the current balance.
func (r *Reader) PayFine(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("pay fine %.2f: %w", amount, ErrInvalidInput)
	}
	if amount > r.Fine {
		return fmt.Errorf("pay fine %.2f exceeds balance %.2f: %w", amount, r.Fine, ErrInvalidInput)
	}
	r.Fine -= amount
	return nil
}

// PayFullFine clears the balance.
func (r *Reader) PayFullFine() { r.Fine = 0 }

// Role distinguishes administrative accounts from patron accounts.
type Role string

const (
	RoleAdmin  Role = "Administrator"
	RoleReader Role = "ReaderUser"
)

// User is a login account. ReaderName is a weak reference to a Reader,
// resolved by name at use time, and is set only for RoleReader accounts.
type User struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
	ReaderName string `json:"reader_name,omitempty"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// VerifyPassword does an exact comparison against the stored credential.
func (u *User) VerifyPassword(password string) bool { return u.Password == password }
