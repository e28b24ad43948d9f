package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/editlog"
	"github.com/tally-dev/tally/internal/report"
)

func newRecategorizeCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recategorize <id> <category>",
		Short: "Assign a category to a transaction",
		Long: "Assign a category to a transaction. The id may be any unique prefix of a\n" +
			"transaction ID. The category may be a key (dining) or a label in either language.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, *dir, func(p *project) error {
				label := args[1]
				if c, ok := report.CategoryFromLabel(label); ok {
					label = string(c)
				}

				before := p.session.Transactions()
				t, err := p.session.Recategorize(p.ctx, args[0], label)
				if err != nil {
					return err
				}

				from := t.Category
				for _, b := range before {
					if b.ID == t.ID {
						from = b.Category
						break
					}
				}
				labels := p.cfg.Display.Labels
				if from == t.Category {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already %s\n", report.ShortID(t.ID), report.Label(t.Category, labels))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s -> %s\n", report.ShortID(t.ID), t.Date,
					report.Label(from, labels), report.Label(t.Category, labels))
				return nil
			})
		},
	}
}

func newHistoryCommand(dir *string) *cobra.Command {
	var latest bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show category edits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd, *dir, func(p *project) error {
				r, err := p.renderer(cmd, "")
				if err != nil {
					return err
				}
				entries, err := editlog.Read(p.dir)
				if err != nil {
					return err
				}
				if latest {
					entries = latestEdits(entries)
				}
				fmt.Fprint(cmd.OutOrStdout(), r.Edits(entries))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "show only the most recent edit per transaction")

	return cmd
}

// latestEdits keeps the last edit per transaction, oldest first.
func latestEdits(entries []editlog.Entry) []editlog.Entry {
	m := editlog.Latest(entries)
	out := make([]editlog.Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out
}
