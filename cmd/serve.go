package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/api"
	"github.com/sells-group/lotes-cli/internal/reproject"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis session over HTTP",
	Long: "Starts the HTTP API used by map front ends. When a source is configured it is " +
		"loaded at startup; otherwise the session starts empty and waits for POST /dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		sel := selectionFromFlags(cmd, cfg)
		defaultProjection, err := reproject.ParseProjection(sel.Projection)
		if err != nil {
			return err
		}

		sess := newSession(cfg)
		if sel.Source != "" {
			if err := loadSelection(ctx, sess, cfg, sel); err != nil {
				return err
			}
		}

		h := api.New(sess, api.Options{
			DefaultProjection: defaultProjection,
			RateLimit:         cfg.Server.RateLimit,
			RateBurst:         cfg.Server.RateBurst,
			CORSOrigins:       cfg.Server.CORSOrigins,
			MaxBodyBytes:      int64(cfg.Server.MaxBodyMB) << 20,
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           h.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.Int("features", sess.Dataset().Len()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
