package expert

import "strings"

// safetyCategory maps trigger phrases found in generated answers to a single
// human-readable warning. One warning per category, deduplicated.
type safetyCategory struct {
	triggers []string
	warning  string
}

var safetyCategories = []safetyCategory{
	{
		triggers: []string{"high voltage", "480v", "600v", "mains voltage", "line voltage"},
		warning:  "High voltage present. Only qualified personnel may open electrical enclosures.",
	},
	{
		triggers: []string{"lockout", "tagout", "loto", "lock out", "tag out"},
		warning:  "Apply lockout/tagout before servicing. Verify zero energy state.",
	},
	{
		triggers: []string{"dc bus", "capacitor", "bus charge", "stored charge"},
		warning:  "Drive DC bus capacitors hold charge after power-off. Wait the manufacturer-specified discharge time and verify with a meter.",
	},
	{
		triggers: []string{"arc flash", "arc-flash", "incident energy"},
		warning:  "Arc flash hazard. Wear appropriate PPE and follow your site's arc flash boundaries.",
	},
}

// ExtractSafetyWarnings scans answer text for hazard trigger phrases and
// returns one warning per matched category, in fixed category order.
func ExtractSafetyWarnings(answer string) []string {
	lower := strings.ToLower(answer)

	var warnings []string
	for _, cat := range safetyCategories {
		for _, trigger := range cat.triggers {
			if strings.Contains(lower, trigger) {
				warnings = append(warnings, cat.warning)
				break
			}
		}
	}
	return warnings
}
