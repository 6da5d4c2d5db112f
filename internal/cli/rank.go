package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/confidence"
	"github.com/matzehuels/diagramflow/pkg/document"
)

// rankCommand creates the rank command for inspecting extraction confidence.
func (c *CLI) rankCommand() *cobra.Command {
	var (
		threshold   float64
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "rank [document.json]",
		Short: "Rank nodes by extraction confidence",
		Long: `Rank nodes by extraction confidence.

Lists every scored node from least to most confident and flags the ones at
or below the threshold. With --interactive an arrow-key picker opens and
prints the selected node id, handy for piping into an edit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRank(cmd, args[0], threshold, interactive)
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", confidence.DefaultThreshold, "flag nodes at or below this score")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick a node interactively")

	return cmd
}

func (c *CLI) runRank(cmd *cobra.Command, input string, threshold float64, interactive bool) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read document %s: %w", input, err)
	}

	doc, err := document.Decode(data)
	if err != nil {
		return err
	}

	ranked := confidence.Ranked(doc)
	if len(ranked) == 0 {
		printWarning("No confidence scores in %s", input)
		return nil
	}

	if interactive {
		model := newNodePickerModel(doc, ranked, threshold)
		final, err := tea.NewProgram(model).Run()
		if err != nil {
			return fmt.Errorf("run picker: %w", err)
		}
		if picked, ok := final.(nodePickerModel); ok && picked.selected != "" {
			fmt.Fprintln(cmd.OutOrStdout(), picked.selected)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	for _, entry := range ranked {
		line := fmt.Sprintf("%-20s %.2f", entry.NodeID, entry.Score)
		if entry.Score <= threshold {
			line += "  " + StyleWarning.Render("needs review")
		}
		fmt.Fprintln(out, line)
	}

	low := confidence.BelowThreshold(doc, threshold)
	fmt.Fprintf(out, "%d of %d nodes at or below %.2f\n", len(low), len(ranked), threshold)
	return nil
}
