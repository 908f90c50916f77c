package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/aggregator"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/ledger"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/normalizer"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/service"
)

type portfolioService interface {
	Overview(ctx context.Context) (*service.Overview, error)
	ListFundTabs(ctx context.Context) ([]string, error)
	ListWritableTabs(ctx context.Context) ([]string, error)
	FundTab(ctx context.Context, tab string) (*service.FundTable, error)
	AppendTransaction(ctx context.Context, tab string, in ledger.TransactionInput) (*service.AppendResult, error)
	PreviewTransaction(ctx context.Context, tab string, in ledger.TransactionInput) (*service.AppendResult, error)
	ListJournal(ctx context.Context, tab string, limit int) ([]*repository.JournalEntry, error)
}

type serviceLoader func(ctx context.Context, logger *slog.Logger) (portfolioService, func(), error)

// session opens the service on first use so help and flag errors never touch the sheet.
type session struct {
	load    serviceLoader
	verbose bool
	svc     portfolioService
	cleanup func()
}

func (s *session) service(cmd *cobra.Command) (portfolioService, error) {
	if s.svc != nil {
		return s.svc, nil
	}

	level := slog.LevelWarn
	if s.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	svc, cleanup, err := s.load(cmd.Context(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio: %w", err)
	}
	s.svc, s.cleanup = svc, cleanup
	return svc, nil
}

func (s *session) close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// newRootCmd returns the command tree and a func releasing whatever the commands opened.
func newRootCmd(load serviceLoader) (*cobra.Command, func()) {
	s := &session{load: load}

	root := &cobra.Command{
		Use:           "fundctl",
		Short:         "Inspect fund holdings and record transactions in the fund workbook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newOverviewCmd(s),
		newTabsCmd(s),
		newShowCmd(s),
		newAddCmd(s),
		newJournalCmd(s),
	)
	return root, s.close
}

func newOverviewCmd(s *session) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show totals per currency and the holdings ranked by profit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := s.service(cmd)
			if err != nil {
				return err
			}

			overview, err := svc.Overview(cmd.Context())
			if err != nil {
				var overviewErr *service.OverviewError
				if errors.As(err, &overviewErr) {
					printPreview(cmd.ErrOrStderr(), overviewErr)
				}
				return err
			}

			printOverview(cmd.OutOrStdout(), overview, top)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "Number of ranked holdings to show (0 for all)")
	return cmd
}

func printOverview(out io.Writer, overview *service.Overview, top int) {
	summary := overview.Summary

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CURRENCY\tHOLDINGS\tVALUE\tPROFIT\tRETURN\t")
	for _, g := range summary.Groups {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t\n",
			g.Currency, g.MemberCount,
			aggregator.DisplayAmount(g.TotalValue, g.Currency),
			aggregator.DisplayAmount(g.TotalProfit, g.Currency),
			aggregator.DisplayRatio(g.ReturnRatio),
		)
	}
	w.Flush()

	// Holdings are summed as stored; mixed currencies are not converted.
	fmt.Fprintf(out, "\nTotal value %s, profit %s, return %s",
		aggregator.DisplayAmount(summary.TotalValue, ""),
		aggregator.DisplayAmount(summary.TotalProfit, ""),
		aggregator.DisplayRatio(summary.TotalReturnRatio),
	)
	if len(summary.Currencies) > 1 {
		fmt.Fprintf(out, " (mixes %s without conversion)", strings.Join(summary.Currencies, ", "))
	}
	fmt.Fprintln(out)

	if summary.Degraded > 0 {
		fmt.Fprintf(out, "\n%d cell(s) could not be read as numbers and count as 0: %s\n",
			summary.Degraded, strings.Join(overview.DegradedSamples, ", "))
	}

	ranking := summary.Ranking
	if top > 0 && len(ranking) > top {
		ranking = ranking[:top]
	}
	fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tFUND\tCURRENCY\tPROFIT\tRETURN")
	for i, h := range ranking {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i+1, h.Name, h.Currency,
			aggregator.DisplayAmount(h.Profit, h.Currency),
			aggregator.DisplayRatio(h.ReturnRatio),
		)
	}
	w.Flush()
}

func printPreview(out io.Writer, e *service.OverviewError) {
	fmt.Fprintf(out, "Columns read from %q: %s\n", e.Tab, strings.Join(e.Headers, " | "))
	for _, row := range e.Preview {
		fmt.Fprintf(out, "  %s\n", strings.Join(row, " | "))
	}
}

func newTabsCmd(s *session) *cobra.Command {
	var writable bool

	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "List fund tabs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := s.service(cmd)
			if err != nil {
				return err
			}

			list := svc.ListFundTabs
			if writable {
				list = svc.ListWritableTabs
			}
			tabs, err := list(cmd.Context())
			if err != nil {
				return err
			}
			for _, tab := range tabs {
				fmt.Fprintln(cmd.OutOrStdout(), tab)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&writable, "writable", false, "List the tabs that accept new transactions")
	return cmd
}

func newShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <tab>",
		Short: "Print the rows of a fund tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.service(cmd)
			if err != nil {
				return err
			}

			table, err := svc.FundTab(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join(table.Headers, "\t"))
			for _, row := range table.Rows {
				fmt.Fprintln(w, strings.Join(row, "\t"))
			}
			return w.Flush()
		},
	}
}

func newAddCmd(s *session) *cobra.Command {
	var (
		date     string
		category string
		price    float64
		amount   float64
		fee      float64
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "add <tab>",
		Short: "Append a transaction to a fund tab",
		Long: `Append a transaction row to a fund tab. Categories: Buy, Sell,
DividendReinvest, TransferIn, TransferOut (or their sheet labels).
Units are derived from amount, fee and price.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tradeDate, err := normalizer.ParseTradeDate(date)
			if err != nil {
				return fmt.Errorf("--date %q: %w", date, err)
			}
			cat, err := ledger.ParseCategory(category)
			if err != nil {
				return err
			}

			svc, err := s.service(cmd)
			if err != nil {
				return err
			}

			in := ledger.TransactionInput{
				Date:     tradeDate,
				Category: cat,
				Price:    price,
				Amount:   amount,
				Fee:      fee,
			}

			if dryRun {
				preview, err := svc.PreviewTransaction(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Would append %s on %s to %q: %.4f units (estimated)\n",
					cat.Label(), tradeDate.Format(normalizer.TradeDateLayout), preview.Tab, preview.Units)
				return nil
			}

			result, err := svc.AppendTransaction(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Appended %s on %s to %q: %.4f units\n",
				cat.Label(), tradeDate.Format(normalizer.TradeDateLayout), result.Tab, result.Units)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Trade date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", string(ledger.Buy), "Transaction category")
	cmd.Flags().Float64Var(&price, "price", 0, "Price per unit")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Transaction amount")
	cmd.Flags().Float64Var(&fee, "fee", 0, "Fee charged")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the estimated units without writing the row")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newJournalCmd(s *session) *cobra.Command {
	var (
		tab   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recently appended transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := s.service(cmd)
			if err != nil {
				return err
			}

			entries, err := svc.ListJournal(cmd.Context(), tab, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RECORDED\tTAB\tDATE\tCATEGORY\tAMOUNT\tUNITS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.4f\n",
					e.CreatedAt.Format("2006-01-02 15:04"), e.Tab, e.TradeDate, e.Category, e.Amount, e.Units)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&tab, "tab", "", "Only show entries for this tab")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}
