package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/categorize"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/editlog"
	"github.com/tally-dev/tally/internal/importer"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/pipeline"
	"github.com/tally-dev/tally/internal/report"
	"github.com/tally-dev/tally/internal/store"
)

// project is an opened tally project: config, store and a loaded session.
type project struct {
	dir     string
	cfg     *config.Config
	log     zerolog.Logger
	ctx     context.Context
	store   store.Store
	session *pipeline.Session
}

// openProject wires a session for the project at dir. With restore set the
// persisted collection is loaded; uploads skip it since they replace the
// collection anyway, which also lets a re-import recover an unreadable store.
func openProject(cmd *cobra.Command, dir string, restore bool) (*project, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.LoadDir(absDir)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Out:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	log = log.With().Str("project", absDir).Logger()

	parser, err := importer.DefaultRegistry().Lookup(cfg.Format)
	if err != nil {
		return nil, err
	}

	rules, err := categorize.LoadFile(config.Resolve(absDir, cfg.Rules.Path))
	if err != nil {
		return nil, err
	}
	cat, err := categorize.New(categorize.Options{SignFirst: cfg.Rules.SignFirst, UserRules: rules})
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	st, err := store.Open(cfg.Store.Backend, config.Resolve(absDir, cfg.Store.Path))
	if err != nil {
		return nil, err
	}

	ctx := logger.WithContext(cmd.Context(), log)
	sess := pipeline.New(pipeline.Options{
		Parser:      parser,
		Categorizer: cat,
		Store:       st,
		Edits:       editlog.Log{Root: absDir},
		Logger:      log,
	})
	if restore {
		if err := sess.Load(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	return &project{dir: absDir, cfg: cfg, log: log, ctx: ctx, store: st, session: sess}, nil
}

func (p *project) Close() error {
	return p.store.Close()
}

// renderer returns a report renderer; labels overrides the configured label set when set.
func (p *project) renderer(cmd *cobra.Command, labels string) (*report.Renderer, error) {
	if labels == "" {
		labels = p.cfg.Display.Labels
	}
	if labels != report.LabelsEnglish && labels != report.LabelsJapanese {
		return nil, fmt.Errorf("--labels must be en or ja, got %q", labels)
	}
	return report.New(cmd.OutOrStdout(), labels, p.cfg.Display.Currency), nil
}

// withProject opens the project at dir with its transactions loaded, runs fn
// and closes the store.
func withProject(cmd *cobra.Command, dir string, fn func(p *project) error) error {
	return runProject(cmd, dir, true, fn)
}

// withUploadProject is withProject for commands that replace the collection.
func withUploadProject(cmd *cobra.Command, dir string, fn func(p *project) error) error {
	return runProject(cmd, dir, false, fn)
}

func runProject(cmd *cobra.Command, dir string, restore bool, fn func(p *project) error) (err error) {
	p, err := openProject(cmd, dir, restore)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing store: %w", cerr)
		}
	}()
	return fn(p)
}
