package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/models"
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Manage research gaps",
	Long: `Manage research gaps: queries the pipeline could not answer with
sufficient confidence. Gaps are the curation backlog; resolving one with a
new atom closes the loop that improves the knowledge base.`,
}

var (
	gapsListStatus string
	gapsListLimit  int
)

var gapsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List research gaps by priority",
	RunE:  runGapsList,
}

var (
	gapsResolveAtomID string
	gapsResolveFailed bool
)

var gapsResolveCmd = &cobra.Command{
	Use:   "resolve <gap-id>",
	Short: "Resolve a research gap with an atom, or mark it failed",
	Long: `Resolve a research gap by linking it to the knowledge atom that answers
it, or mark it failed when research came up empty.

Examples:
  rivet gaps resolve knowledge_gap:abc123 --atom knowledge_atom:def456
  rivet gaps resolve knowledge_gap:abc123 --failed`,
	Args: cobra.ExactArgs(1),
	RunE: runGapsResolve,
}

func init() {
	gapsListCmd.Flags().StringVarP(&gapsListStatus, "status", "s", "pending", "filter by status (pending, in_progress, completed, failed)")
	gapsListCmd.Flags().IntVarP(&gapsListLimit, "limit", "n", 20, "max results")

	gapsResolveCmd.Flags().StringVar(&gapsResolveAtomID, "atom", "", "atom id that resolves this gap")
	gapsResolveCmd.Flags().BoolVar(&gapsResolveFailed, "failed", false, "mark the gap as failed research")

	gapsCmd.AddCommand(gapsListCmd)
	gapsCmd.AddCommand(gapsResolveCmd)
}

func runGapsList(cmd *cobra.Command, args []string) error {
	gaps, err := dbClient.ListGaps(cmd.Context(), db.ListGapOptions{
		Status: models.ResearchStatus(gapsListStatus),
		Limit:  gapsListLimit,
	})
	if err != nil {
		return fmt.Errorf("list gaps: %w", err)
	}

	if len(gaps) == 0 {
		fmt.Println("No gaps found.")
		return nil
	}

	for _, gap := range gaps {
		context := ""
		if gap.Manufacturer != nil {
			context += " " + *gap.Manufacturer
		}
		if gap.Model != nil {
			context += " " + *gap.Model
		}
		fmt.Printf("p%-3d ×%-3d %s [%s]%s  %s\n",
			gap.Priority, gap.OccurrenceCount, models.MustRecordIDString(gap.ID),
			gap.ResearchStatus, context, gap.Query)
	}
	return nil
}

func runGapsResolve(cmd *cobra.Command, args []string) error {
	gapID := args[0]

	if gapsResolveFailed {
		gap, err := dbClient.MarkGapFailed(cmd.Context(), gapID)
		if err != nil {
			return fmt.Errorf("mark gap failed: %w", err)
		}
		fmt.Printf("Marked %s failed\n", models.MustRecordIDString(gap.ID))
		return nil
	}

	if gapsResolveAtomID == "" {
		return fmt.Errorf("either --atom or --failed is required")
	}

	// Reject dangling atom references up front.
	if _, err := dbClient.GetAtom(cmd.Context(), gapsResolveAtomID); err != nil {
		return fmt.Errorf("resolving atom: %w", err)
	}

	gap, err := dbClient.MarkGapResolved(cmd.Context(), gapID, gapsResolveAtomID)
	if err != nil {
		return fmt.Errorf("resolve gap: %w", err)
	}

	fmt.Printf("Resolved %s with %s\n", models.MustRecordIDString(gap.ID), gapsResolveAtomID)
	return nil
}
