package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rivetlabs/rivet/internal/models"
)

var importSkipVerified bool

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import knowledge atoms from a YAML export file",
	Long: `Import knowledge atoms from a file previously written by "rivet export".
Atoms are created as new records; embeddings are regenerated in one batch
call against the configured embedding provider. Gaps in the file are
ignored, they exist for review only.

Examples:
  rivet import ./backup.yaml
  rivet import ./siemens.yaml --unverified`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importSkipVerified, "unverified", false, "strip the human-verified flag from imported atoms")
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var file exportFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}
	if len(file.Atoms) == 0 {
		return fmt.Errorf("no atoms in %s", args[0])
	}

	ins := make([]models.AtomInput, 0, len(file.Atoms))
	for _, atom := range file.Atoms {
		verified := atom.HumanVerified && !importSkipVerified
		ins = append(ins, models.AtomInput{
			Type:          models.AtomType(atom.Type),
			Manufacturer:  atom.Manufacturer,
			Model:         atom.Model,
			EquipmentType: atom.EquipmentType,
			Title:         atom.Title,
			Content:       atom.Content,
			SourceURL:     atom.SourceURL,
			Confidence:    atom.Confidence,
			HumanVerified: verified,
		})
	}

	knowledge, err := getKnowledge()
	if err != nil {
		return err
	}

	atoms, err := knowledge.IngestBatch(cmd.Context(), ins)
	if err != nil {
		if len(atoms) > 0 {
			return fmt.Errorf("import stopped after %d of %d atoms: %w", len(atoms), len(ins), err)
		}
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("Imported %d atoms from %s\n", len(atoms), args[0])
	return nil
}
