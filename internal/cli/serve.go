package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/internal/config"
	"github.com/matzehuels/diagramflow/internal/server"
	"github.com/matzehuels/diagramflow/pkg/extract"
	"github.com/matzehuels/diagramflow/pkg/review"
)

// serveCommand creates the serve command running the HTTP review service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diagram review HTTP service",
		Long: `Run the diagram review HTTP service.

The service accepts diagram image uploads, extracts their node and edge
structure through the configured provider, and serves the review, approval,
and diff endpoints. Configuration comes from a TOML file and environment
variables; API keys are read from OPENAI_API_KEY and GEMINI_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to TOML config file")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "bind address (overrides config)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config) error {
	st, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize %s store: %w", cfg.Storage, err)
	}
	defer st.Close()

	svc := review.NewService(review.Config{
		Store:           st,
		Extractor:       extract.NewClient(cfg.ExtractConfig()),
		DefaultProvider: extract.Normalize(cfg.Provider),
		Threshold:       cfg.Threshold,
		Logger:          c.Logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(server.Config{Service: svc, Store: st, Logger: c.Logger}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", cfg.ListenAddr, "storage", cfg.Storage)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
