package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/export"
)

func newExportCommand(dir *string) *cobra.Command {
	var period monthFlags
	var summaryOnly bool

	cmd := &cobra.Command{
		Use:   "export <out.csv>",
		Short: "Write categorized transactions (or a category summary) to CSV",
		Long:  "Write categorized transactions (or a category summary) to CSV. Use - for stdout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, *dir, func(p *project) error {
				if err := period.apply(p.session); err != nil {
					return err
				}
				a := p.session.Analysis()

				write := func(w io.Writer) error {
					if summaryOnly {
						return export.WriteSummary(w, a.Summaries.Overall)
					}
					return export.WriteTransactions(w, a.Transactions)
				}

				if args[0] == "-" {
					return write(cmd.OutOrStdout())
				}
				if err := writeFile(args[0], write); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d transactions to %s\n", len(a.Transactions), args[0])
				return nil
			})
		},
	}

	period.register(cmd, true)
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "write per-category totals instead of transactions")

	return cmd
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return write(f)
}
