package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/config"
	"github.com/sells-group/lotes-cli/internal/fetcher"
	"github.com/sells-group/lotes-cli/internal/reproject"
	"github.com/sells-group/lotes-cli/internal/session"
)

// selection is the dataset source plus the filter a command applies.
type selection struct {
	Source        string
	Projection    string
	Nucleo        string
	DisableGrades []string
}

// selectionFromFlags resolves flags over config values.
func selectionFromFlags(cmd *cobra.Command, c *config.Config) selection {
	sel := selection{Source: c.Dataset.Source, Projection: c.Dataset.Projection}
	flags := cmd.Flags()
	if flags.Changed("source") {
		sel.Source, _ = flags.GetString("source")
	}
	if flags.Changed("projection") {
		sel.Projection, _ = flags.GetString("projection")
	}
	sel.Nucleo, _ = flags.GetString("nucleo")
	sel.DisableGrades, _ = flags.GetStringSlice("disable-grade")
	return sel
}

// newSession builds an empty session sized from config.
func newSession(c *config.Config) *session.Session {
	return session.New(session.Options{ReprojectWorkers: c.Dataset.ReprojectWorkers})
}

// loadSelection opens the source, loads it into sess, and applies the
// núcleo and grade selection.
func loadSelection(ctx context.Context, sess *session.Session, c *config.Config, sel selection) error {
	if sel.Source == "" {
		return eris.New("dataset: no source (set --source or dataset.source)")
	}
	p, err := reproject.ParseProjection(sel.Projection)
	if err != nil {
		return err
	}

	timeout := time.Duration(c.Dataset.FetchTimeoutSecs) * time.Second
	opener := fetcher.NewOpener(fetcher.Options{
		Timeout:    timeout,
		MaxRetries: c.Dataset.FetchRetries,
	})

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	rc, err := opener.Open(fetchCtx, sel.Source)
	if err != nil {
		return eris.Wrap(err, "dataset: open source")
	}
	defer rc.Close() //nolint:errcheck

	if _, err := sess.Load(fetchCtx, rc, sel.Source, p); err != nil {
		return eris.Wrap(err, "dataset: load")
	}

	for _, g := range sel.DisableGrades {
		if err := sess.SetGradeEnabled(g, false); err != nil {
			return eris.Wrapf(err, "dataset: disable grade %q", g)
		}
	}
	sess.SelectCluster(sel.Nucleo)

	zap.L().Debug("dataset: selection applied",
		zap.String("nucleo", sess.Cluster()),
		zap.Strings("disabled_grades", sel.DisableGrades),
	)
	return nil
}

// loadFromFlags is the common prologue of the one-shot commands.
func loadFromFlags(cmd *cobra.Command) (*session.Session, error) {
	sess := newSession(cfg)
	if err := loadSelection(cmd.Context(), sess, cfg, selectionFromFlags(cmd, cfg)); err != nil {
		return nil, err
	}
	return sess, nil
}
