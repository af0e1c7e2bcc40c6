// Package vendors infers an equipment manufacturer from structured context,
// free text, or fault-code shape.
package vendors

import (
	"regexp"
	"strings"

	"github.com/rivetlabs/rivet/internal/models"
)

// Vendor is a canonical manufacturer key.
type Vendor string

const (
	Siemens    Vendor = "siemens"
	Rockwell   Vendor = "rockwell"
	ABB        Vendor = "abb"
	Schneider  Vendor = "schneider"
	Mitsubishi Vendor = "mitsubishi"
	Fanuc      Vendor = "fanuc"
	None       Vendor = ""
)

// Known lists every vendor with a dedicated expert profile, in the fixed
// iteration order used for keyword scanning. Order matters: detection must be
// deterministic when a query mentions multiple vendors.
var Known = []Vendor{Siemens, Rockwell, ABB, Schneider, Mitsubishi, Fanuc}

// Detection is the outcome of a vendor inference.
type Detection struct {
	Vendor Vendor
	// Source names the signal that decided: "context", "keyword",
	// "fault_code", or "" when nothing matched.
	Source string
	// Tentative marks low-confidence shape-only matches (generic fault-code
	// patterns that many vendors share).
	Tentative bool
}

// aliases maps normalized manufacturer strings to canonical vendors.
var aliases = map[string]Vendor{
	"siemens":             Siemens,
	"rockwell":            Rockwell,
	"rockwell automation": Rockwell,
	"allen-bradley":       Rockwell,
	"allen bradley":       Rockwell,
	"ab":                  Rockwell,
	"abb":                 ABB,
	"schneider":           Schneider,
	"schneider electric":  Schneider,
	"square d":            Schneider,
	"mitsubishi":          Mitsubishi,
	"mitsubishi electric": Mitsubishi,
	"fanuc":               Fanuc,
	"ge fanuc":            Fanuc,
}

// partPrefixes maps well-known part-number prefixes to vendors, for cases
// where the "manufacturer" field actually carries an order number.
var partPrefixes = []struct {
	prefix string
	vendor Vendor
}{
	{"6ES7", Siemens},
	{"6SL3", Siemens},
	{"1756-", Rockwell},
	{"1769-", Rockwell},
}

// keywords holds per-vendor product, protocol, and tooling terms, matched as
// case-insensitive substrings against the query.
var keywords = map[Vendor][]string{
	Siemens:    {"tia portal", "s7-1200", "s7-1500", "s7-300", "s7-400", "sinamics", "simatic", "profinet", "step 7", "g120", "logo!"},
	Rockwell:   {"studio 5000", "controllogix", "compactlogix", "micrologix", "powerflex", "rslogix", "factorytalk", "kinetix"},
	ABB:        {"acs880", "acs580", "acs550", "robotstudio", "irb ", "ac500"},
	Schneider:  {"modicon", "unity pro", "ecostruxure", "altivar", "lexium", "twidosuite"},
	Mitsubishi: {"melsec", "gx works", "melservo", "fr-a800", "fr-e800", "got2000"},
	Fanuc:      {"fanuc", "karel", "roboguide", "teach pendant", "r-30ib"},
}

var (
	siemensFaultRe  = regexp.MustCompile(`\bF-?\d{4,5}\b`)
	rockwellFaultRe = regexp.MustCompile(`(?i)\b(fault|error)\s+\d{1,4}\b`)
)

// Detect infers a vendor from the richest available signal, in strict
// priority order: explicit manufacturer context, then query keywords, then
// fault-code shape. First match wins; signals are never merged. Absence of a
// match is a normal outcome, not an error.
func Detect(query string, equipment models.EquipmentContext) Detection {
	if equipment.Manufacturer != "" {
		if v := normalizeManufacturer(equipment.Manufacturer); v != None {
			return Detection{Vendor: v, Source: "context"}
		}
	}

	lower := strings.ToLower(query)
	for _, vendor := range Known {
		for _, kw := range keywords[vendor] {
			if strings.Contains(lower, kw) {
				return Detection{Vendor: vendor, Source: "keyword"}
			}
		}
	}

	// Fault-code shape. The structured field is checked before the free text.
	for _, text := range []string{equipment.FaultCode, query} {
		if text == "" {
			continue
		}
		if siemensFaultRe.MatchString(text) {
			return Detection{Vendor: Siemens, Source: "fault_code"}
		}
		if rockwellFaultRe.MatchString(text) {
			return Detection{Vendor: Rockwell, Source: "fault_code", Tentative: true}
		}
	}

	return Detection{}
}

// normalizeManufacturer resolves a raw manufacturer string to a canonical
// vendor via the alias table, substring match, or part-number prefix.
func normalizeManufacturer(raw string) Vendor {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	if v, ok := aliases[lower]; ok {
		return v
	}
	// Substring pass in fixed vendor order; the two-letter "ab" alias is
	// skipped here since it false-positives inside longer words.
	for _, vendor := range Known {
		for alias, v := range aliases {
			if v == vendor && len(alias) >= 3 && strings.Contains(lower, alias) {
				return v
			}
		}
	}
	upper := strings.ToUpper(trimmed)
	for _, pp := range partPrefixes {
		if strings.HasPrefix(upper, pp.prefix) {
			return pp.vendor
		}
	}
	return None
}
