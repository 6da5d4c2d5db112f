package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/internal/config"
	"github.com/matzehuels/diagramflow/pkg/extract"
	"github.com/matzehuels/diagramflow/pkg/review"
)

// convertCommand creates the convert command for one-shot local extraction.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		configPath string
		provider   string
		prompt     string
	)

	cmd := &cobra.Command{
		Use:   "convert [image]",
		Short: "Extract diagram structure from an image",
		Long: `Extract diagram structure from an image.

The image is registered in the configured store under a fresh diagram id,
sent through structure extraction, and the resulting document and mermaid
artifact are persisted. Without an API key for the selected provider the
offline placeholder document is produced instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return c.runConvert(cmd.Context(), cfg, args[0], provider, prompt)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to TOML config file")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "extraction provider: openai (default), gemini")
	cmd.Flags().StringVar(&prompt, "prompt", "", "override the extraction prompt")

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, cfg config.Config, image, provider, prompt string) error {
	data, err := os.ReadFile(image)
	if err != nil {
		return fmt.Errorf("read image %s: %w", image, err)
	}

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

	id := uuid.NewString()
	if _, err := st.RegisterUpload(ctx, id, filepath.Base(image), data); err != nil {
		return err
	}

	tracker := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Extracting structure...")
	spinner.Start()

	doc, err := svc.Extract(ctx, id, provider, prompt)
	if err != nil {
		spinner.StopWithError("Extraction failed")
		return err
	}

	// Regenerate synchronously so the artifact is on disk before we
	// report file locations.
	if _, err := svc.GenerateArtifact(ctx, id); err != nil {
		spinner.StopWithError("Artifact generation failed")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Extracted %d nodes, %d edges", len(doc.Nodes), len(doc.Edges)))
	tracker.done(fmt.Sprintf("Converted %s", image))

	printKeyValue("diagram", id)
	if doc.Title != "" {
		printKeyValue("title", doc.Title)
	}
	if cfg.Storage == "file" {
		printFile(filepath.Join(cfg.DataDir, "output", id+".json"))
		printFile(filepath.Join(cfg.DataDir, "output", id+".mmd"))
	}
	return nil
}
