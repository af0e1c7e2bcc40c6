// Package expert dispatches troubleshooting queries to vendor-specific LLM
// persona profiles.
package expert

import (
	"fmt"

	"github.com/rivetlabs/rivet/internal/vendors"
)

// Profile confidence constants. Vendor profiles carry a fixed trust level
// reflecting how well-curated their prompt is; the value is not derived from
// the LLM response.
const (
	VendorConfidence  = 0.80
	GenericConfidence = 0.72
)

// Profile is a vendor persona: a system prompt plus its static confidence.
type Profile struct {
	Vendor     vendors.Vendor
	Name       string
	Confidence float64
	System     string
}

const promptPreamble = `You are an experienced industrial maintenance engineer answering a technician on the shop floor.
Give concrete, step-by-step troubleshooting guidance. Always state required safety precautions first.
If a step requires opening an electrical cabinet or working near energized equipment, say so explicitly.`

var profiles = map[vendors.Vendor]Profile{
	vendors.Siemens: {
		Vendor:     vendors.Siemens,
		Name:       "Siemens SME",
		Confidence: VendorConfidence,
		System: promptPreamble + `
You specialize in Siemens automation: SIMATIC S7 PLCs, SINAMICS drives, TIA Portal, and PROFINET networks.
Reference Siemens fault codes (F/A numbers) and TIA Portal diagnostic views where relevant.`,
	},
	vendors.Rockwell: {
		Vendor:     vendors.Rockwell,
		Name:       "Rockwell SME",
		Confidence: VendorConfidence,
		System: promptPreamble + `
You specialize in Rockwell Automation: ControlLogix/CompactLogix controllers, PowerFlex drives, Studio 5000, and EtherNet/IP.
Reference controller major/minor fault codes and Studio 5000 diagnostics where relevant.`,
	},
	vendors.ABB: {
		Vendor:     vendors.ABB,
		Name:       "ABB SME",
		Confidence: VendorConfidence,
		System: promptPreamble + `
You specialize in ABB equipment: ACS drives, AC500 PLCs, and ABB industrial robots.
Reference ABB fault/warning codes and Drive Composer diagnostics where relevant.`,
	},
	vendors.Schneider: {
		Vendor:     vendors.Schneider,
		Name:       "Schneider SME",
		Confidence: VendorConfidence,
		System: promptPreamble + `
You specialize in Schneider Electric: Modicon PLCs, Altivar drives, and EcoStruxure tooling.
Reference Schneider fault codes and Unity Pro/EcoStruxure diagnostics where relevant.`,
	},
	vendors.Mitsubishi: {
		Vendor:     vendors.Mitsubishi,
		Name:       "Mitsubishi SME",
		Confidence: VendorConfidence,
		System: promptPreamble + `
You specialize in Mitsubishi Electric: MELSEC PLCs, FR-series inverters, and GX Works.
Reference Mitsubishi error codes and GX Works diagnostics where relevant.`,
	},
	vendors.Fanuc: {
		Vendor:     vendors.Fanuc,
		Name:       "FANUC SME",
		Confidence: VendorConfidence,
		System: promptPreamble + `
You specialize in FANUC: CNC controls and industrial robots.
Reference FANUC alarm codes (SRVO, MOTN, SYST) and teach pendant diagnostics where relevant.`,
	},
}

var genericProfile = Profile{
	Vendor:     vendors.None,
	Name:       "Generic SME",
	Confidence: GenericConfidence,
	System: promptPreamble + `
You are a generalist across PLCs, drives, motors, sensors, pneumatics, and hydraulics from any manufacturer.`,
}

// ProfileFor returns the persona for a vendor, falling back to the generic
// profile when the vendor is unknown.
func ProfileFor(vendor vendors.Vendor) Profile {
	if p, ok := profiles[vendor]; ok {
		return p
	}
	return genericProfile
}

// UserPrompt renders the technician's query with whatever equipment context
// is available.
func UserPrompt(query, manufacturer, model, faultCode string) string {
	prompt := "Problem: " + query
	if manufacturer != "" {
		prompt += fmt.Sprintf("\nManufacturer: %s", manufacturer)
	}
	if model != "" {
		prompt += fmt.Sprintf("\nModel: %s", model)
	}
	if faultCode != "" {
		prompt += fmt.Sprintf("\nFault code: %s", faultCode)
	}
	return prompt
}
