package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rivetlabs/rivet/internal/models"
)

var (
	tsManufacturer string
	tsModel        string
	tsFaultCode    string
	tsKBThreshold  float64
	tsSMEThreshold float64
)

var troubleshootCmd = &cobra.Command{
	Use:   "troubleshoot <query>",
	Short: "Answer a troubleshooting question through the four-route pipeline",
	Long: `Answer an industrial troubleshooting question.

The query runs through up to four routes in order: knowledge-base vector
search, vendor expert dispatch, research-gap capture, and a general fallback.
Equipment context flags sharpen both vendor detection and confidence scoring.

Examples:
  rivet troubleshoot "VFD shows F30005 and won't reset"
  rivet troubleshoot "conveyor stops randomly" --manufacturer siemens --model G120
  rivet troubleshoot "drive overcurrent on start" --fault-code F30001`,
	Args: cobra.ExactArgs(1),
	RunE: runTroubleshoot,
}

func init() {
	troubleshootCmd.Flags().StringVarP(&tsManufacturer, "manufacturer", "m", "", "equipment manufacturer")
	troubleshootCmd.Flags().StringVar(&tsModel, "model", "", "equipment model number")
	troubleshootCmd.Flags().StringVar(&tsFaultCode, "fault-code", "", "displayed fault or error code")
	troubleshootCmd.Flags().Float64Var(&tsKBThreshold, "kb-threshold", 0, "override knowledge-base confidence threshold")
	troubleshootCmd.Flags().Float64Var(&tsSMEThreshold, "sme-threshold", 0, "override expert confidence threshold")
}

func runTroubleshoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kbThreshold := cfg.KBThreshold
	if tsKBThreshold > 0 {
		kbThreshold = tsKBThreshold
	}
	smeThreshold := cfg.SMEThreshold
	if tsSMEThreshold > 0 {
		smeThreshold = tsSMEThreshold
	}

	orch, err := getOrchestrator(ctx, kbThreshold, smeThreshold)
	if err != nil {
		return err
	}

	result := orch.Troubleshoot(ctx, args[0], models.EquipmentContext{
		Manufacturer: tsManufacturer,
		ModelNumber:  tsModel,
		FaultCode:    tsFaultCode,
	})

	printResult(result)
	return nil
}

func printResult(result *models.TroubleshootResult) {
	theme := defaultTheme

	header := fmt.Sprintf("[%s]", routeLabel(result.Route))
	fmt.Printf("%s %s\n\n",
		theme.routeStyle().Render(header),
		theme.confidenceStyle(result.Confidence).Render(fmt.Sprintf("confidence %.3f", result.Confidence)))

	if len(result.SafetyWarnings) > 0 {
		for _, w := range result.SafetyWarnings {
			fmt.Println(theme.safetyStyle().Render("⚠ " + w))
		}
		fmt.Println()
	}

	fmt.Println(strings.TrimSpace(result.Answer))

	if result.ClarificationPrompt != "" {
		fmt.Println()
		fmt.Println(theme.hintStyle().Render(result.ClarificationPrompt))
	}

	if len(result.Sources) > 0 {
		fmt.Println()
		fmt.Println(theme.hintStyle().Render("Sources: " + strings.Join(result.Sources, ", ")))
	}

	footer := []string{}
	if result.Manufacturer != "" {
		footer = append(footer, "manufacturer: "+result.Manufacturer)
	}
	if result.FaultCode != "" {
		footer = append(footer, "fault code: "+result.FaultCode)
	}
	if result.GapLogged {
		footer = append(footer, "research gap logged")
	}
	footer = append(footer, fmt.Sprintf("llm calls: %d", result.LLMCalls))
	if result.CostUSD > 0 {
		footer = append(footer, fmt.Sprintf("cost: $%.4f", result.CostUSD))
	}
	fmt.Println()
	fmt.Println(theme.hintStyle().Render(strings.Join(footer, " · ")))
}

func routeLabel(route models.Route) string {
	switch route {
	case models.RouteKB:
		return "knowledge base"
	case models.RouteSME:
		return "vendor expert"
	case models.RouteClarify:
		return "needs clarification"
	case models.RouteGeneral:
		return "general guidance"
	default:
		return string(route)
	}
}
