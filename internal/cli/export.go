package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/models"
)

var (
	exportType         string
	exportManufacturer string
	exportVerified     bool
	exportGaps         bool
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export the knowledge base to a YAML file",
	Long: `Export knowledge atoms (and optionally research gaps) to a YAML file
for backup, review, or migration. Embeddings are not exported; they are
regenerated on import.

Examples:
  rivet export ./backup.yaml
  rivet export ./siemens.yaml --manufacturer siemens
  rivet export ./audit.yaml --verified-only --gaps`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportType, "type", "t", "", "export only this atom type")
	exportCmd.Flags().StringVarP(&exportManufacturer, "manufacturer", "m", "", "export only this manufacturer")
	exportCmd.Flags().BoolVar(&exportVerified, "verified-only", false, "export only human-verified atoms")
	exportCmd.Flags().BoolVar(&exportGaps, "gaps", false, "include pending research gaps")
}

// exportAtom is the YAML shape of one atom, without embedding or usage stats.
type exportAtom struct {
	ID            string    `yaml:"id"`
	Type          string    `yaml:"type"`
	Title         string    `yaml:"title"`
	Content       string    `yaml:"content"`
	Manufacturer  *string   `yaml:"manufacturer,omitempty"`
	Model         *string   `yaml:"model,omitempty"`
	EquipmentType *string   `yaml:"equipment_type,omitempty"`
	SourceURL     *string   `yaml:"source_url,omitempty"`
	Confidence    float64   `yaml:"confidence"`
	HumanVerified bool      `yaml:"human_verified"`
	LastVerified  time.Time `yaml:"last_verified,omitempty"`
}

type exportGap struct {
	Query           string  `yaml:"query"`
	Manufacturer    *string `yaml:"manufacturer,omitempty"`
	Model           *string `yaml:"model,omitempty"`
	ConfidenceScore float64 `yaml:"confidence_score"`
	OccurrenceCount int     `yaml:"occurrence_count"`
	Priority        int     `yaml:"priority"`
}

type exportFile struct {
	ExportedAt time.Time    `yaml:"exported_at"`
	Atoms      []exportAtom `yaml:"atoms"`
	Gaps       []exportGap  `yaml:"gaps,omitempty"`
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	atoms, err := dbClient.ListAtoms(ctx, db.ListAtomOptions{
		Type:         models.AtomType(exportType),
		Manufacturer: exportManufacturer,
		Limit:        10000,
	})
	if err != nil {
		return fmt.Errorf("list atoms: %w", err)
	}

	out := exportFile{ExportedAt: time.Now().UTC()}
	for _, atom := range atoms {
		if exportVerified && !atom.HumanVerified {
			continue
		}
		out.Atoms = append(out.Atoms, exportAtom{
			ID:            models.MustRecordIDString(atom.ID),
			Type:          string(atom.Type),
			Title:         atom.Title,
			Content:       atom.Content,
			Manufacturer:  atom.Manufacturer,
			Model:         atom.Model,
			EquipmentType: atom.EquipmentType,
			SourceURL:     atom.SourceURL,
			Confidence:    atom.Confidence,
			HumanVerified: atom.HumanVerified,
			LastVerified:  atom.LastVerified,
		})
	}

	if exportGaps {
		gaps, err := dbClient.ListGaps(ctx, db.ListGapOptions{
			Status: models.GapPending,
			Limit:  10000,
		})
		if err != nil {
			return fmt.Errorf("list gaps: %w", err)
		}
		for _, gap := range gaps {
			out.Gaps = append(out.Gaps, exportGap{
				Query:           gap.Query,
				Manufacturer:    gap.Manufacturer,
				Model:           gap.Model,
				ConfidenceScore: gap.ConfidenceScore,
				OccurrenceCount: gap.OccurrenceCount,
				Priority:        gap.Priority,
			})
		}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	fmt.Printf("Exported %d atoms", len(out.Atoms))
	if exportGaps {
		fmt.Printf(" and %d pending gaps", len(out.Gaps))
	}
	fmt.Printf(" to %s\n", args[0])
	return nil
}
