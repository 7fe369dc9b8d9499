package main

import (
	"errors"
	"fmt"
	"os"

	"library-circulation/library"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library circulation: catalog, patrons, loans and fines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		shellCmd(),
		addBookCmd(),
		removeBookCmd(),
		addReaderCmd(),
		removeReaderCmd(),
		borrowCmd(),
		returnCmd(),
		payCmd(),
		listBooksCmd(),
		listReadersCmd(),
		recordsCmd(),
		searchBookCmd(),
		searchReaderCmd(),
		exportCmd(),
	)
	return root
}

// withLibrary loads the persisted state, runs op against the service and
// writes the state back. Startup load and shutdown save are the only
// points where storage is touched.
func withLibrary(op func(*library.Library) error) error {
	cfg := library.LoadConfig()
	store, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	state, err := store.Load()
	if err != nil {
		return err
	}
	lib := library.NewLibrary(cfg.Policy())
	lib.Restore(state)
	lib.EnsureAdmin(cfg.AdminUser, cfg.AdminPassword)

	opErr := op(lib)
	if err := store.Save(lib.Snapshot()); err != nil {
		return err
	}
	return opErr
}

func addBookCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add-book <title> <author>",
		Short: "Add a book to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				book, err := lib.AddBook(args[0], args[1], library.Category(category))
				if err != nil {
					return err
				}
				fmt.Printf("Added %q by %s (%s, fine %.2f/day)\n",
					book.Title, book.Author, book.Category, book.FinePerDay())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", string(library.CategoryNovel),
		"book category: Textbook, Novel or Magazine")
	return cmd
}

func removeBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-book <title>",
		Short: "Remove a book from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				if err := lib.RemoveBook(args[0]); err != nil {
					return err
				}
				fmt.Printf("Removed %q\n", args[0])
				return nil
			})
		},
	}
}

func addReaderCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "add-reader <name>",
		Short: "Register a patron",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := readerKindFromFlag(kind)
			if err != nil {
				return err
			}
			return withLibrary(func(lib *library.Library) error {
				reader, err := lib.AddReader(args[0], k)
				if err != nil {
					return err
				}
				fmt.Printf("Registered %s (%s, %d-day loans)\n",
					reader.Name, reader.Kind, reader.LoanPeriodDays())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "regular", "membership: regular, vip or student")
	return cmd
}

func removeReaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-reader <name>",
		Short: "Remove a patron",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				if err := lib.RemoveReader(args[0]); err != nil {
					return err
				}
				fmt.Printf("Removed reader %q\n", args[0])
				return nil
			})
		},
	}
}

func borrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <title> <reader>",
		Short: "Lend a book to a reader",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				res, err := lib.BorrowBook(args[0], args[1])
				if err != nil {
					return err
				}
				if res.OutstandingFine > 0 {
					fmt.Printf("Warning: %s owes an unpaid fine of %.2f\n", args[1], res.OutstandingFine)
				}
				fmt.Printf("%q lent to %s, due %s\n",
					args[0], args[1], res.Record.DueAt.Format(timeLayout))
				return nil
			})
		},
	}
}

func returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <title> <reader>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				res, err := lib.ReturnBook(args[0], args[1])
				if err != nil {
					return err
				}
				if res.OverdueDays > 0 {
					fmt.Printf("%q returned %d day(s) late; fine %.2f added to %s's balance\n",
						args[0], res.OverdueDays, res.Fine, args[1])
				} else {
					fmt.Printf("%q returned on time\n", args[0])
				}
				return nil
			})
		},
	}
}

func payCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "pay <reader> [amount]",
		Short: "Settle a reader's fine (--all pays in full)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount := -1.0
			if !all {
				if len(args) < 2 {
					return fmt.Errorf("amount required unless --all is given")
				}
				parsed, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				amount = parsed
			}
			return withLibrary(func(lib *library.Library) error {
				p, err := lib.PayFine(args[0], amount)
				if err != nil {
					return err
				}
				if p.Paid == 0 {
					fmt.Printf("%s has no unpaid fine\n", args[0])
					return nil
				}
				fmt.Printf("Paid %.2f, remaining balance %.2f\n", p.Paid, p.Remaining)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "pay the full balance")
	return cmd
}

func listBooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				printBooks(lib.Books())
				return nil
			})
		},
	}
}

func listReadersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "readers",
		Short: "List registered patrons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				printReaders(lib.Readers())
				return nil
			})
		},
	}
}

func recordsCmd() *cobra.Command {
	var overdue bool
	var dueSoon int
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List borrow records (all, overdue, or due soon)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				switch {
				case overdue:
					printRecords(lib, lib.OverdueRecords())
				case dueSoon > 0:
					printRecords(lib, lib.DueSoon(dueSoon))
				default:
					printRecords(lib, lib.Records())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only open records past their due date")
	cmd.Flags().IntVar(&dueSoon, "due-soon", 0, "only open records due within N days")
	return cmd
}

func searchBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search-book <title>",
		Short: "Show a book and its borrow history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				detail, err := lib.SearchBook(args[0])
				if err != nil {
					return err
				}
				printBooks([]*library.Book{detail.Book})
				if len(detail.History) == 0 {
					fmt.Println("No borrow records.")
					return nil
				}
				printRecords(lib, detail.History)
				return nil
			})
		},
	}
}

func searchReaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search-reader <name>",
		Short: "Show a reader and their borrow history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				detail, err := lib.SearchReader(args[0])
				if err != nil {
					return err
				}
				printReaders([]*library.Reader{detail.Reader})
				if len(detail.History) == 0 {
					fmt.Println("No borrow records.")
					return nil
				}
				printRecords(lib, detail.History)
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the full library state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(func(lib *library.Library) error {
				data, err := library.EncodeSnapshot(lib.Snapshot())
				if err != nil {
					return err
				}
				if output == "" {
					fmt.Println(string(data))
					return nil
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("Exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// friendlyError keeps one-shot command failures matchable upstream while
// giving the shell readable text.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, library.ErrPermissionDenied):
		return "only administrators may do that"
	default:
		return err.Error()
	}
}
