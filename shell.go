package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"library-circulation/library"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const timeLayout = "2006-01-02 15:04"

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(runShell)
		},
	}
}

// readPassword reads a password with terminal masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// runShell is the interactive session loop: login or register first, then
// an admin or reader command set depending on the account.
func runShell(lib *library.Library) error {
	sc := bufio.NewScanner(os.Stdin)
	fmt.Println("Library circulation shell. Commands: login, register, exit")

	var current *library.User
	for {
		if current == nil {
			cmd, ok := prompt(sc, "\n> ")
			if !ok {
				return nil
			}
			switch cmd {
			case "login":
				current = handleLogin(sc, lib)
			case "register":
				handleRegister(sc, lib)
			case "exit", "quit":
				return nil
			case "":
			default:
				fmt.Println("Unknown command. Use: login, register, exit")
			}
			continue
		}

		if current.IsAdmin() {
			if !adminLoop(sc, lib, current) {
				return nil
			}
		} else {
			if !readerLoop(sc, lib, current) {
				return nil
			}
		}
		current = nil // loops exit on logout
	}
}

func handleLogin(sc *bufio.Scanner, lib *library.Library) *library.User {
	username, ok := prompt(sc, "Username: ")
	if !ok {
		return nil
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return nil
	}
	user, err := lib.Login(username, password)
	if err != nil {
		fmt.Println("Login failed:", friendlyError(err))
		return nil
	}
	fmt.Printf("Welcome, %s!\n", user.Username)
	return user
}

func handleRegister(sc *bufio.Scanner, lib *library.Library) {
	kind, ok := prompt(sc, "Account type (admin/reader): ")
	if !ok {
		return
	}
	username, ok := prompt(sc, "Username: ")
	if !ok {
		return
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}

	switch kind {
	case "admin":
		if _, err := lib.RegisterAdmin(username, password); err != nil {
			fmt.Println("Error:", friendlyError(err))
			return
		}
		fmt.Printf("Administrator %q registered\n", username)
	case "reader":
		readerName, ok := prompt(sc, "Reader name: ")
		if !ok {
			return
		}
		kindStr, ok := prompt(sc, "Membership (regular/vip/student): ")
		if !ok {
			return
		}
		readerKind, err := readerKindFromFlag(kindStr)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		if _, err := lib.RegisterReaderUser(username, password, readerName, readerKind); err != nil {
			fmt.Println("Error:", friendlyError(err))
			return
		}
		fmt.Printf("Reader account %q registered for %s\n", username, readerName)
	default:
		fmt.Println("Account type must be admin or reader")
	}
}

// adminLoop returns false when the shell should exit entirely.
func adminLoop(sc *bufio.Scanner, lib *library.Library, admin *library.User) bool {
	fmt.Println("\nAdmin commands: add book, remove book, add reader, remove reader,")
	fmt.Println("  list books, list readers, records, overdue, due soon,")
	fmt.Println("  search book, search reader, users, delete user, logout, exit")

	for {
		cmd, ok := prompt(sc, "\nadmin> ")
		if !ok {
			return false
		}
		switch cmd {
		case "add book":
			title, ok := prompt(sc, "Title: ")
			if !ok {
				return false
			}
			author, ok := prompt(sc, "Author: ")
			if !ok {
				return false
			}
			category, ok := prompt(sc, "Category (Textbook/Novel/Magazine): ")
			if !ok {
				return false
			}
			book, err := lib.AddBook(title, author, library.Category(category))
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			fmt.Printf("Added %q (%s, fine %.2f/day)\n", book.Title, book.Category, book.FinePerDay())
		case "remove book":
			title, ok := prompt(sc, "Title: ")
			if !ok {
				return false
			}
			if err := lib.RemoveBook(title); err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			fmt.Println("Book removed.")
		case "add reader":
			name, ok := prompt(sc, "Name: ")
			if !ok {
				return false
			}
			kindStr, ok := prompt(sc, "Membership (regular/vip/student): ")
			if !ok {
				return false
			}
			kind, err := readerKindFromFlag(kindStr)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			reader, err := lib.AddReader(name, kind)
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			fmt.Printf("Registered %s (%d-day loans)\n", reader.Name, reader.LoanPeriodDays())
		case "remove reader":
			name, ok := prompt(sc, "Name: ")
			if !ok {
				return false
			}
			if err := lib.RemoveReader(name); err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			fmt.Println("Reader removed.")
		case "list books":
			printBooks(lib.Books())
		case "list readers":
			printReaders(lib.Readers())
		case "records":
			printRecords(lib, lib.Records())
		case "overdue":
			printRecords(lib, lib.OverdueRecords())
		case "due soon":
			printRecords(lib, lib.DueSoon(0))
		case "search book":
			title, ok := prompt(sc, "Title: ")
			if !ok {
				return false
			}
			detail, err := lib.SearchBook(title)
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			printBooks([]*library.Book{detail.Book})
			printRecords(lib, detail.History)
		case "search reader":
			name, ok := prompt(sc, "Name: ")
			if !ok {
				return false
			}
			detail, err := lib.SearchReader(name)
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			printReaders([]*library.Reader{detail.Reader})
			printRecords(lib, detail.History)
		case "users":
			users, err := lib.Users(admin)
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			printUsers(users)
		case "delete user":
			username, ok := prompt(sc, "Username: ")
			if !ok {
				return false
			}
			if err := lib.DeleteUser(admin, username); err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			fmt.Println("User deleted.")
		case "logout":
			return true
		case "exit", "quit":
			return false
		case "":
		default:
			fmt.Println("Unknown command.")
		}
	}
}

// readerLoop returns false when the shell should exit entirely.
func readerLoop(sc *bufio.Scanner, lib *library.Library, user *library.User) bool {
	reader, err := lib.ReaderFor(user)
	if err != nil {
		fmt.Println("Error:", friendlyError(err))
		return true
	}
	fmt.Printf("\nReader commands (%s): borrow, return, pay fine, my records, logout, exit\n", reader.Name)

	for {
		cmd, ok := prompt(sc, "\nreader> ")
		if !ok {
			return false
		}
		switch cmd {
		case "borrow":
			title, ok := prompt(sc, "Title: ")
			if !ok {
				return false
			}
			res, err := lib.BorrowBook(title, reader.Name)
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			if res.OutstandingFine > 0 {
				fmt.Printf("Warning: you owe an unpaid fine of %.2f\n", res.OutstandingFine)
			}
			fmt.Printf("Due %s\n", res.Record.DueAt.Format(timeLayout))
		case "return":
			title, ok := prompt(sc, "Title: ")
			if !ok {
				return false
			}
			res, err := lib.ReturnBook(title, reader.Name)
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			if res.OverdueDays > 0 {
				fmt.Printf("Returned %d day(s) late; fine %.2f added to your balance\n",
					res.OverdueDays, res.Fine)
			} else {
				fmt.Println("Returned on time, thank you!")
			}
		case "pay fine":
			amountStr, ok := prompt(sc, "Amount (blank pays in full): ")
			if !ok {
				return false
			}
			amount := -1.0
			if amountStr != "" {
				parsed, err := parseAmount(amountStr)
				if err != nil {
					fmt.Println("Error:", err)
					continue
				}
				amount = parsed
			}
			p, err := lib.PayFine(reader.Name, amount)
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			if p.Paid == 0 {
				fmt.Println("You have no unpaid fine.")
				continue
			}
			fmt.Printf("Paid %.2f, remaining balance %.2f\n", p.Paid, p.Remaining)
		case "my records":
			detail, err := lib.SearchReader(reader.Name)
			if err != nil {
				fmt.Println("Error:", friendlyError(err))
				continue
			}
			printRecords(lib, detail.History)
		case "logout":
			return true
		case "exit", "quit":
			return false
		case "":
		default:
			fmt.Println("Unknown command.")
		}
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func printBooks(books []*library.Book) {
	if len(books) == 0 {
		fmt.Println("No books in catalog.")
		return
	}
	fmt.Printf("%-30s %-25s %-10s %-9s %s\n", "Title", "Author", "Category", "Fine/Day", "Status")
	fmt.Println(strings.Repeat("-", 90))
	for _, b := range books {
		status := "available"
		if b.Borrowed {
			status = "borrowed"
		}
		fmt.Printf("%-30s %-25s %-10s %-9.2f %s\n",
			truncateString(b.Title, 30), truncateString(b.Author, 25),
			truncateString(string(b.Category), 10), b.FinePerDay(), status)
	}
}

func printReaders(readers []*library.Reader) {
	if len(readers) == 0 {
		fmt.Println("No registered readers.")
		return
	}
	fmt.Printf("%-25s %-15s %-12s %s\n", "Name", "Membership", "Loan Period", "Fine")
	fmt.Println(strings.Repeat("-", 65))
	for _, r := range readers {
		fmt.Printf("%-25s %-15s %-12d %.2f\n",
			truncateString(r.Name, 25), r.Kind, r.LoanPeriodDays(), r.Fine)
	}
}

func printRecords(lib *library.Library, records []*library.BorrowRecord) {
	if len(records) == 0 {
		fmt.Println("No borrow records.")
		return
	}
	now := lib.Now()
	fmt.Printf("%-25s %-20s %-17s %-17s %-8s %s\n", "Book", "Reader", "Borrowed", "Due", "Overdue", "Status")
	fmt.Println(strings.Repeat("-", 105))
	for _, rec := range records {
		status := "open"
		if rec.Returned {
			status = "returned " + rec.ReturnedAt.Format(timeLayout)
		}
		overdue := ""
		if days := rec.OverdueDays(now); days > 0 {
			overdue = fmt.Sprintf("%dd/%.2f", days, lib.RecordFine(rec))
		}
		fmt.Printf("%-25s %-20s %-17s %-17s %-8s %s\n",
			truncateString(rec.BookTitle, 25), truncateString(rec.ReaderName, 20),
			rec.BorrowedAt.Format(timeLayout), rec.DueAt.Format(timeLayout), overdue, status)
	}
}

func printUsers(users []*library.User) {
	fmt.Printf("%-20s %-15s %s\n", "Username", "Role", "Reader")
	fmt.Println(strings.Repeat("-", 50))
	for _, u := range users {
		fmt.Printf("%-20s %-15s %s\n", u.Username, u.Role, u.ReaderName)
	}
}

// ---------------------------------------------------------------------------
// Input helpers
// ---------------------------------------------------------------------------

func readerKindFromFlag(s string) (library.ReaderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regular", "regularmember":
		return library.KindRegular, nil
	case "vip", "vipmember":
		return library.KindVIP, nil
	case "student", "studentmember":
		return library.KindStudent, nil
	default:
		return "", fmt.Errorf("unknown membership %q (use regular, vip or student)", s)
	}
}

func parseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}
