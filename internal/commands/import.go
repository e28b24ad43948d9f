package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/pipeline"
)

func newImportCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CIMB statement, replacing the current transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUploadProject(cmd, *dir, func(p *project) error {
				_, err := importFile(cmd, p, args[0])
				return err
			})
		},
	}
}

func newScanCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Import every statement in import/ and move it to import/processed/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUploadProject(cmd, *dir, func(p *project) error {
				files, err := importer.Scan(p.dir)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No statements to import.")
					return nil
				}
				if len(files) > 1 {
					p.log.Warn().Int("files", len(files)).Msg("each statement replaces the previous one; the last file wins")
				}
				for _, f := range files {
					if _, err := importFile(cmd, p, f.Path); err != nil {
						return err
					}
					dst, err := importer.MarkProcessed(p.dir, f.Name)
					if err != nil {
						return err
					}
					p.log.Debug().Str("file", f.Name).Str("moved_to", dst).Msg("statement processed")
				}
				return nil
			})
		},
	}
}

func importFile(cmd *cobra.Command, p *project, path string) (pipeline.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return pipeline.UploadResult{}, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	res, err := p.session.Upload(p.ctx, filepath.Base(path), f)
	if err != nil {
		return res, err
	}
	printUploadResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
	return res, nil
}

func printUploadResult(out, errOut io.Writer, res pipeline.UploadResult) {
	fmt.Fprintf(out, "Imported %d of %d rows from %s", res.Imported, res.Rows, res.File)
	if res.Skipped > 0 {
		fmt.Fprintf(out, " (%d skipped)", res.Skipped)
	}
	fmt.Fprintln(out)
	for _, re := range res.RowErrors {
		fmt.Fprintf(errOut, "  %v\n", re)
	}
}
