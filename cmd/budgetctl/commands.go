package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/core"
	"budget/internal/exchange"
	apphttp "budget/internal/http"
	"budget/internal/store"
)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Inspect and maintain a budget database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			withApp(cmd, a)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return appFrom(cmd).Close()
		},
	}
	root.AddCommand(
		dashboardCmd(),
		reportCmd(),
		summaryCmd(),
		balancesCmd(),
		listCmd(),
		exportCmd(),
		importCmd(),
		transferCmd(),
		seedCmd(),
	)
	return root
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard aggregates for today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := appFrom(cmd).agg.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
}

func reportCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the monthly report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			at := a.now().In(a.loc)
			if month != "" {
				var err error
				if at, err = time.ParseInLocation("2006-01", month, a.loc); err != nil {
					return fmt.Errorf("invalid month %q: want YYYY-MM", month)
				}
			}
			r, err := a.agg.MonthlyReport(cmd.Context(), at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default: current)")
	return cmd
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print all-time totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := appFrom(cmd).agg.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
}

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Print total and per-account balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := appFrom(cmd).agg.Balances(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		},
	}
}

func listCmd() *cobra.Command {
	var (
		accounts, categories                 []string
		flow, from, to, minAmt, maxAmt, sort string
		asCSV                                bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			q := url.Values{"account": accounts, "category": categories}
			for key, v := range map[string]string{"type": flow, "from": from, "to": to, "min": minAmt, "max": maxAmt, "sort": sort} {
				if v != "" {
					q.Set(key, v)
				}
			}
			c, err := apphttp.ParseCriteria(q, a.loc, a.places)
			if err != nil {
				return err
			}
			txs, err := a.agg.Transactions(cmd.Context(), c)
			if err != nil {
				return err
			}
			if asCSV {
				return exchange.WriteCSV(cmd.OutOrStdout(), txs, a.loc, a.places)
			}
			return printJSON(cmd.OutOrStdout(), txs)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&accounts, "account", "a", nil, "account ids")
	f.StringSliceVarP(&categories, "category", "c", nil, "category ids")
	f.StringVarP(&flow, "type", "t", "", "income or expense")
	f.StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	f.StringVar(&minAmt, "min", "", "minimum absolute amount")
	f.StringVar(&maxAmt, "max", "", "maximum absolute amount")
	f.StringVarP(&sort, "sort", "s", "", "date-desc, date-asc, amount-desc or amount-asc")
	f.BoolVar(&asCSV, "csv", false, "write CSV instead of JSON")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full export document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			doc, err := exchange.Export(cmd.Context(), a.store, a.now())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return exchange.Write(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := exchange.Write(f, doc); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func importCmd() *cobra.Command {
	var clearFirst bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load an export document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			doc, err := exchange.Read(f)
			if err != nil {
				return err
			}
			if err := appFrom(cmd).ledger.Import(cmd.Context(), doc, clearFirst); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d accounts, %d categories, %d transactions\n",
				len(doc.Accounts), len(doc.Categories), len(doc.Transactions))
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "replace current data instead of merging")
	return cmd
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default accounts and categories in an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := store.DefaultSeed()
			if file != "" {
				var err error
				if seed, err = store.LoadSeed(file); err != nil {
					return err
				}
			}
			applied, err := appFrom(cmd).ledger.Seed(cmd.Context(), seed)
			if err != nil {
				return err
			}
			if applied {
				fmt.Fprintln(cmd.OutOrStdout(), "seeded")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "store not empty, nothing to do")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file (default: built-in)")
	return cmd
}

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Create, show, edit or delete transfers",
	}

	var (
		from, to                  int64
		amount, date, description string
	)
	request := func(a *app) (core.TransferRequest, error) {
		m, err := core.ParseAmount(amount, a.places)
		if err != nil {
			return core.TransferRequest{}, fmt.Errorf("amount %q: %w", amount, err)
		}
		d, err := a.parseDate(date)
		if err != nil {
			return core.TransferRequest{}, err
		}
		return core.TransferRequest{Amount: m, FromAccount: from, ToAccount: to, Date: d, Description: description}, nil
	}
	legFlags := func(c *cobra.Command) {
		c.Flags().Int64Var(&from, "from", 0, "source account id")
		c.Flags().Int64Var(&to, "to", 0, "destination account id")
		c.Flags().StringVar(&amount, "amount", "", "amount moved")
		c.Flags().StringVar(&date, "date", "", "YYYY-MM-DD (default: today)")
		c.Flags().StringVar(&description, "description", "", "description for both legs")
		_ = c.MarkFlagRequired("from")
		_ = c.MarkFlagRequired("to")
		_ = c.MarkFlagRequired("amount")
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Move money between two accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			req, err := request(a)
			if err != nil {
				return err
			}
			t, err := a.transfers.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	legFlags(create)

	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Replace a transfer keeping its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			req, err := request(a)
			if err != nil {
				return err
			}
			t, err := a.transfers.Edit(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	legFlags(edit)

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print a transfer rebuilt from its legs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := appFrom(cmd).transfers.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete both legs of a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appFrom(cmd).transfers.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, edit, show, del)
	return cmd
}
