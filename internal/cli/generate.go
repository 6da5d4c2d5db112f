package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/document"
	"github.com/matzehuels/diagramflow/pkg/mermaid"
)

// generateCommand creates the generate command for document-to-mermaid
// conversion.
func (c *CLI) generateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate [document.json]",
		Short: "Generate mermaid text from a document file",
		Long: `Generate mermaid text from a document file.

Reads a node-edge document in JSON form and prints the equivalent mermaid
flowchart. Use --output to write a file instead of stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, input, output string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read document %s: %w", input, err)
	}

	doc, err := document.Decode(data)
	if err != nil {
		return err
	}

	text := mermaid.Generate(doc)
	if output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	if err := os.WriteFile(output, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Wrote mermaid")
	printFile(output)
	return nil
}
