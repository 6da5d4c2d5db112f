// Package cli implements the diagramflow command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/internal/config"
	"github.com/matzehuels/diagramflow/pkg/buildinfo"
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "diagramflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Diagramflow turns diagram images into reviewable node-edge documents",
		Long:         `Diagramflow extracts node and edge structure from diagram images, generates mermaid text from the result, and serves a review workflow with approval snapshots and structural diffs.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.rankCommand())

	return root
}

// newStore builds the persistence backend selected by cfg.
func newStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Storage {
	case "file":
		return store.NewFileStore(cfg.DataDir)
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case "mongo":
		return store.NewMongoStore(ctx, store.MongoOptions{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown storage backend %q", cfg.Storage)
}
