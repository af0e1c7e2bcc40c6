package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rivetlabs/rivet/internal/db"
	"github.com/rivetlabs/rivet/internal/models"
)

var atomCmd = &cobra.Command{
	Use:   "atom",
	Short: "Manage knowledge atoms",
}

var (
	atomAddType          string
	atomAddTitle         string
	atomAddContent       string
	atomAddContentFile   string
	atomAddManufacturer  string
	atomAddModel         string
	atomAddEquipmentType string
	atomAddSourceURL     string
	atomAddConfidence    float64
	atomAddVerified      bool
)

var atomAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a knowledge atom",
	Long: `Add a knowledge atom to the curated knowledge base.

The embedding is generated from the title and content using the configured
embedding provider.

Examples:
  rivet atom add -t fault --title "G120 F30005 overcurrent" --content-file f30005.md -m siemens
  rivet atom add -t tip --title "Check terminal torque on intermittent faults" \
      --content "Loose power terminals cause intermittent drive faults under load." --confidence 0.8`,
	RunE: runAtomAdd,
}

var (
	atomListType         string
	atomListManufacturer string
	atomListLimit        int
)

var atomListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge atoms, newest first",
	RunE:  runAtomList,
}

var atomVerifyCmd = &cobra.Command{
	Use:   "verify <atom-id>",
	Short: "Mark an atom as human-verified",
	Long: `Mark an atom as human-verified. Verification boosts the atom's routing
confidence and refreshes its staleness clock.`,
	Args: cobra.ExactArgs(1),
	RunE: runAtomVerify,
}

func init() {
	atomAddCmd.Flags().StringVarP(&atomAddType, "type", "t", "", "atom type: fault, procedure, spec, part, tip, safety")
	atomAddCmd.Flags().StringVar(&atomAddTitle, "title", "", "short title")
	atomAddCmd.Flags().StringVar(&atomAddContent, "content", "", "atom content")
	atomAddCmd.Flags().StringVar(&atomAddContentFile, "content-file", "", "read content from file")
	atomAddCmd.Flags().StringVarP(&atomAddManufacturer, "manufacturer", "m", "", "equipment manufacturer")
	atomAddCmd.Flags().StringVar(&atomAddModel, "model", "", "equipment model")
	atomAddCmd.Flags().StringVar(&atomAddEquipmentType, "equipment-type", "", "equipment category (plc, vfd, robot, ...)")
	atomAddCmd.Flags().StringVar(&atomAddSourceURL, "source-url", "", "where this knowledge came from")
	atomAddCmd.Flags().Float64Var(&atomAddConfidence, "confidence", 0.5, "author-asserted quality 0-1")
	atomAddCmd.Flags().BoolVar(&atomAddVerified, "verified", false, "mark as human-verified")
	_ = atomAddCmd.MarkFlagRequired("type")
	_ = atomAddCmd.MarkFlagRequired("title")

	atomListCmd.Flags().StringVarP(&atomListType, "type", "t", "", "filter by atom type")
	atomListCmd.Flags().StringVarP(&atomListManufacturer, "manufacturer", "m", "", "filter by manufacturer")
	atomListCmd.Flags().IntVarP(&atomListLimit, "limit", "n", 20, "max results")

	atomCmd.AddCommand(atomAddCmd)
	atomCmd.AddCommand(atomListCmd)
	atomCmd.AddCommand(atomVerifyCmd)
}

func runAtomAdd(cmd *cobra.Command, args []string) error {
	content := atomAddContent
	if atomAddContentFile != "" {
		data, err := os.ReadFile(atomAddContentFile)
		if err != nil {
			return fmt.Errorf("read content file: %w", err)
		}
		content = string(data)
	}

	in := models.AtomInput{
		Type:          models.AtomType(atomAddType),
		Title:         atomAddTitle,
		Content:       content,
		Confidence:    atomAddConfidence,
		HumanVerified: atomAddVerified,
	}
	if atomAddManufacturer != "" {
		in.Manufacturer = &atomAddManufacturer
	}
	if atomAddModel != "" {
		in.Model = &atomAddModel
	}
	if atomAddEquipmentType != "" {
		in.EquipmentType = &atomAddEquipmentType
	}
	if atomAddSourceURL != "" {
		in.SourceURL = &atomAddSourceURL
	}

	knowledge, err := getKnowledge()
	if err != nil {
		return err
	}
	atom, err := knowledge.Ingest(cmd.Context(), in)
	if err != nil {
		return err
	}

	fmt.Printf("Added %s [%s] %s\n", models.MustRecordIDString(atom.ID), atom.Type, atom.Title)
	return nil
}

func runAtomList(cmd *cobra.Command, args []string) error {
	atoms, err := dbClient.ListAtoms(cmd.Context(), db.ListAtomOptions{
		Type:         models.AtomType(atomListType),
		Manufacturer: atomListManufacturer,
		Limit:        atomListLimit,
	})
	if err != nil {
		return fmt.Errorf("list atoms: %w", err)
	}

	if len(atoms) == 0 {
		fmt.Println("No atoms found.")
		return nil
	}

	for _, atom := range atoms {
		verified := " "
		if atom.HumanVerified {
			verified = "✓"
		}
		manufacturer := ""
		if atom.Manufacturer != nil {
			manufacturer = " " + *atom.Manufacturer
		}
		fmt.Printf("%s %s [%s]%s conf=%.2f used=%d  %s\n",
			verified, models.MustRecordIDString(atom.ID), atom.Type, manufacturer,
			atom.Confidence, atom.UsageCount, atom.Title)
	}
	return nil
}

func runAtomVerify(cmd *cobra.Command, args []string) error {
	verified := true
	atom, err := dbClient.UpdateAtom(cmd.Context(), args[0], models.UpdateAtomArgs{
		HumanVerified: &verified,
	})
	if err != nil {
		return fmt.Errorf("verify atom: %w", err)
	}

	fmt.Printf("Verified %s  %s\n", models.MustRecordIDString(atom.ID), atom.Title)
	return nil
}
