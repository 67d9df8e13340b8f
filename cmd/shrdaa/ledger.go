package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/shrdaa/backend/internal/models"
	"github.com/shrdaa/backend/internal/services"
	"github.com/spf13/cobra"
)

// withLedger runs fn against an opened ledger and closes it afterwards.
func withLedger(cmd *cobra.Command, fn func(ctx context.Context, ledger *services.LedgerService) error) error {
	a, err := appFromContext(cmd.Context())
	if err != nil {
		return err
	}

	ledger, closeStore, err := openLedger(cmd.Context(), a)
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(cmd.Context(), ledger)
}

func render(w io.Writer, header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

func renderAccount(w io.Writer, acc models.Account) {
	render(w,
		table.Row{"Account", "Name", "Role", "Balance", "Location", "Projects"},
		[]table.Row{{acc.AccountNo, acc.Name, acc.Role(), acc.Balance.String(), acc.Location, fmt.Sprint(acc.AuthorizedProjectNos)}},
	)
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create missing tables and finish interrupted transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				fmt.Fprintln(cmd.OutOrStdout(), "Storage initialized")
				return nil
			})
		},
	}
}

func accountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	cmd.AddCommand(accountCreateCommand())
	cmd.AddCommand(accountShowCommand())
	return cmd
}

type accountInput struct {
	Name      string `validate:"required"`
	Age       int    `validate:"gte=0,lte=150"`
	Location  string
	RankTitle string `validate:"required"`
	Password  string `validate:"required"`
	Balance   string `validate:"omitempty,numeric"`
}

func accountCreateCommand() *cobra.Command {
	var in accountInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.NewValidationHelper().ValidateStruct(&in); err != nil {
				return err
			}

			req := services.NewAccount{
				Name:      in.Name,
				Age:       in.Age,
				Location:  in.Location,
				RankTitle: in.RankTitle,
				Password:  in.Password,
			}
			if in.Balance != "" {
				balance, err := decimal.NewFromString(in.Balance)
				if err != nil {
					return fmt.Errorf("invalid balance: %w", err)
				}
				req.Balance = &balance
			}

			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				acc, err := ledger.CreateAccount(ctx, req)
				if err != nil {
					return err
				}
				renderAccount(cmd.OutOrStdout(), acc)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "account holder name")
	cmd.Flags().IntVar(&in.Age, "age", 0, "account holder age")
	cmd.Flags().StringVar(&in.Location, "location", "", "account holder location")
	cmd.Flags().StringVar(&in.RankTitle, "rank", "", "rank or title, decides the role")
	cmd.Flags().StringVar(&in.Password, "password", "", "account password")
	cmd.Flags().StringVar(&in.Balance, "balance", "", "opening balance, defaults by role")
	return cmd
}

func accountShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <accountNo>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				acc, err := ledger.GetAccount(ctx, args[0])
				if err != nil {
					return err
				}
				renderAccount(cmd.OutOrStdout(), acc)
				return nil
			})
		},
	}
}

func projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	var accountNos []string
	var description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a project and authorize accounts for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if description == "" {
				return fmt.Errorf("--description is required")
			}
			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				projectNo, err := ledger.CreateProject(ctx, accountNos, description)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), projectNo)
				return nil
			})
		},
	}
	create.Flags().StringSliceVar(&accountNos, "accounts", nil, "accounts to authorize, comma separated")
	create.Flags().StringVar(&description, "description", "", "project description")

	cmd.AddCommand(create)
	return cmd
}

func transferCommand() *cobra.Command {
	var in struct {
		From     string `validate:"required"`
		To       string `validate:"required"`
		Project  string `validate:"required"`
		Amount   string `validate:"required,numeric"`
		Password string `validate:"required"`
	}

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer funds between accounts under a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.NewValidationHelper().ValidateStruct(&in); err != nil {
				return err
			}

			amount, err := decimal.NewFromString(in.Amount)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}

			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				if _, err := ledger.Authenticate(ctx, in.From, in.Password); err != nil {
					return err
				}

				entry, err := ledger.ProcessTransaction(ctx, in.From, in.To, in.Project, amount)
				if err != nil {
					return err
				}
				renderEntries(cmd.OutOrStdout(), []models.LedgerEntry{entry})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.From, "from", "", "sending account")
	cmd.Flags().StringVar(&in.To, "to", "", "receiving account")
	cmd.Flags().StringVar(&in.Project, "project", "", "project the transfer is booked under")
	cmd.Flags().StringVar(&in.Amount, "amount", "", "amount to transfer")
	cmd.Flags().StringVar(&in.Password, "password", "", "sender password")
	return cmd
}

func verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <transactionNo>",
		Short: "Verify a transaction against its chain block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				verified, err := ledger.VerifyTransaction(ctx, args[0])
				if err != nil {
					return err
				}
				if !verified {
					return fmt.Errorf("transaction %s failed verification", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transaction %s verified\n", args[0])
				return nil
			})
		},
	}
}

func verifyChainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-chain",
		Short: "Walk the whole chain from genesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				report, err := ledger.VerifyChainIntegrity(ctx)
				if err != nil {
					return err
				}
				if !report.Intact() {
					return fmt.Errorf("chain broken at block %d of %d: %s", *report.FirstBroken, report.Length, report.Reason)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Chain intact, %d blocks\n", report.Length)
				return nil
			})
		},
	}
}

func projectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				projects, err := ledger.ListProjects(ctx)
				if err != nil {
					return err
				}

				rows := make([]table.Row, 0, len(projects))
				for _, p := range projects {
					rows = append(rows, table.Row{p.ProjectNo, p.Description})
				}
				render(cmd.OutOrStdout(), table.Row{"Project", "Description"}, rows)
				return nil
			})
		},
	}
}

func renderEntries(w io.Writer, entries []models.LedgerEntry) {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{e.TransactionNo, e.ProjectNo, e.FromAccountNo, e.ToAccountNo, e.AmountText(), e.Timestamp, e.VerificationStatus})
	}
	render(w, table.Row{"Transaction", "Project", "From", "To", "Amount", "Timestamp", "Status"}, rows)
}

func ledgerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger <projectNo>",
		Short: "Show the ledger of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, func(ctx context.Context, ledger *services.LedgerService) error {
				entries, err := ledger.LedgerByProject(ctx, args[0])
				if err != nil {
					return err
				}
				renderEntries(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
}
