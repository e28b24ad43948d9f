package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/pipeline"
)

// monthFlags selects the analysis period shared by summary, list and export.
type monthFlags struct {
	month string
	all   bool
}

func (f *monthFlags) register(cmd *cobra.Command, allByDefault bool) {
	cmd.Flags().StringVar(&f.month, "month", "", "month to show (YYYY-MM)")
	if !allByDefault {
		cmd.Flags().BoolVar(&f.all, "all", false, "show all months")
		cmd.MarkFlagsMutuallyExclusive("month", "all")
	} else {
		f.all = true
	}
}

func (f *monthFlags) apply(s *pipeline.Session) error {
	switch {
	case f.month != "":
		return s.SelectMonth(f.month)
	case f.all:
		s.ShowAll()
	}
	return nil
}

func newSummaryCommand(dir *string) *cobra.Command {
	var period monthFlags
	var labels string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income and expense totals by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, *dir, func(p *project) error {
				r, err := p.renderer(cmd, labels)
				if err != nil {
					return err
				}
				if err := period.apply(p.session); err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), r.Summary(p.session.Analysis()))
				return nil
			})
		},
	}

	period.register(cmd, false)
	cmd.Flags().StringVar(&labels, "labels", "", "category label language (en or ja); defaults to the config")

	return cmd
}

func newMonthsCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List months with transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, *dir, func(p *project) error {
				r, err := p.renderer(cmd, "")
				if err != nil {
					return err
				}
				a := p.session.Analysis()
				fmt.Fprint(cmd.OutOrStdout(), r.Months(a.Months, a.Filter.Month))
				return nil
			})
		},
	}
}

func newListCommand(dir *string) *cobra.Command {
	var period monthFlags
	var labels string
	var explain bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, *dir, func(p *project) error {
				r, err := p.renderer(cmd, labels)
				if err != nil {
					return err
				}
				if err := period.apply(p.session); err != nil {
					return err
				}
				txns := p.session.Analysis().Transactions
				if explain {
					fmt.Fprint(cmd.OutOrStdout(), r.TransactionsExplained(txns, p.session.Explain))
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), r.Transactions(txns))
				return nil
			})
		},
	}

	period.register(cmd, true)
	cmd.Flags().StringVar(&labels, "labels", "", "category label language (en or ja); defaults to the config")
	cmd.Flags().BoolVar(&explain, "explain", false, "show the rule that chose each category")

	return cmd
}
