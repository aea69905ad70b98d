package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
)

func sessionCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect payment sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [session-id]",
		Short: "Show a payment session from the store, or from the ledger once it has expired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := e.sessions.FindByID(ctx, args[0])
			if err == nil {
				return printJSON(s)
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}

			entry, hooks, err := e.audit.Lookup(ctx, args[0])
			switch {
			case errors.Is(err, domain.ErrLedgerDisabled), errors.Is(err, domain.ErrNotFound):
				return fmt.Errorf("session %s: %w", args[0], domain.ErrSessionNotFound)
			case err != nil:
				return err
			}
			return printJSON(map[string]any{"ledger": entry, "webhooks": hooks})
		},
	})
	return cmd
}

func activateCmd(opts *globalOpts) *cobra.Command {
	var (
		userID string
		plan   string
		at     string
	)
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Apply a paid plan to a user, or repair a half-finished activation",
		Long: `Activate writes the subscription record and the user's entitlement fields.
Running it again with the same --at is a no-op once both records agree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePlan(plan)
			if err != nil {
				return err
			}
			activatedAt := time.Now().UTC()
			if at != "" {
				if activatedAt, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			sub, err := e.subs.Activate(ctx, userID, p, activatedAt)
			if err != nil {
				return err
			}
			return printJSON(sub)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	cmd.Flags().StringVarP(&plan, "plan", "p", "", "plan (starter, professional, enterprise)")
	cmd.Flags().StringVar(&at, "at", "", "activation time, RFC3339 (default now)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func auditCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the payment ledger",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recently updated ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			entries, err := e.audit.Recent(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tUSER\tPLAN\tMETHOD\tAMOUNT\tSTATUS\tUPDATED")
			for _, en := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%s\t%s\n",
					en.SessionID, orDash(en.UserID), en.Plan, en.Method, en.Amount, en.Currency, en.Status,
					en.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries")

	var grace time.Duration
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Mark pending entries past their expiry as abandoned",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			e, err := openEnv(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.audit.Sweep(ctx, time.Now().Add(-grace))
			if err != nil {
				return err
			}
			fmt.Printf("marked %d session(s) abandoned\n", n)
			return nil
		},
	}
	sweep.Flags().DurationVar(&grace, "grace", 5*time.Minute, "only sweep sessions expired longer ago than this")

	cmd.AddCommand(list, sweep)
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
