package vendors

import (
	"testing"

	"github.com/rivetlabs/rivet/internal/models"
)

func TestDetectFromContext(t *testing.T) {
	cases := []struct {
		name         string
		manufacturer string
		want         Vendor
	}{
		{"exact alias", "siemens", Siemens},
		{"mixed case", "Siemens", Siemens},
		{"allen-bradley alias", "Allen-Bradley", Rockwell},
		{"ab shorthand", "AB", Rockwell},
		{"rockwell automation", "Rockwell Automation", Rockwell},
		{"square d", "Square D", Schneider},
		{"substring match", "Mitsubishi Electric Corp.", Mitsubishi},
		{"siemens part prefix", "6ES7214-1AG40", Siemens},
		{"sinamics part prefix", "6SL3210-1KE21", Siemens},
		{"controllogix part prefix", "1756-L83E", Rockwell},
		{"compactlogix part prefix", "1769-L33ER", Rockwell},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect("motor won't start", models.EquipmentContext{Manufacturer: tc.manufacturer})
			if got.Vendor != tc.want {
				t.Errorf("Detect with manufacturer %q = %q, want %q", tc.manufacturer, got.Vendor, tc.want)
			}
			if got.Source != "context" {
				t.Errorf("Expected context source, got %q", got.Source)
			}
			if got.Tentative {
				t.Error("Context matches are never tentative")
			}
		})
	}
}

func TestDetectFromKeywords(t *testing.T) {
	cases := []struct {
		query string
		want  Vendor
	}{
		{"how do I download a program in TIA Portal", Siemens},
		{"S7-1200 CPU stuck in STOP mode", Siemens},
		{"PROFINET device not reachable", Siemens},
		{"Studio 5000 cannot go online", Rockwell},
		{"ControlLogix major fault after power cycle", Rockwell},
		{"PowerFlex 525 shows no output", Rockwell},
		{"ACS880 drive overtemperature warning", ABB},
		{"Altivar 320 displays OCF", Schneider},
		{"GX Works3 connection timeout", Mitsubishi},
		{"FANUC robot servo alarm", Fanuc},
	}

	for _, tc := range cases {
		got := Detect(tc.query, models.EquipmentContext{})
		if got.Vendor != tc.want {
			t.Errorf("Detect(%q) = %q, want %q", tc.query, got.Vendor, tc.want)
		}
		if got.Source != "keyword" {
			t.Errorf("Detect(%q) source = %q, want keyword", tc.query, got.Source)
		}
	}
}

func TestDetectContextBeatsKeywords(t *testing.T) {
	// Query mentions Siemens tooling but the context names Rockwell.
	got := Detect("migrating from TIA Portal", models.EquipmentContext{Manufacturer: "Allen Bradley"})
	if got.Vendor != Rockwell {
		t.Errorf("Context should win over keywords, got %q", got.Vendor)
	}
}

func TestDetectFromFaultCode(t *testing.T) {
	got := Detect("drive tripped with F30005", models.EquipmentContext{})
	if got.Vendor != Siemens || got.Source != "fault_code" {
		t.Errorf("F-code should detect siemens via fault_code, got %+v", got)
	}
	if got.Tentative {
		t.Error("Siemens F-code shape is not tentative")
	}

	got = Detect("panel shows F-3002 intermittently", models.EquipmentContext{})
	if got.Vendor != Siemens {
		t.Errorf("F-#### shape should detect siemens, got %q", got.Vendor)
	}

	got = Detect("hmi reports fault 71 on the drive", models.EquipmentContext{})
	if got.Vendor != Rockwell || !got.Tentative {
		t.Errorf("Generic fault-number shape should be tentative rockwell, got %+v", got)
	}

	// Structured fault code field is inspected even when the query is vague.
	got = Detect("machine stopped", models.EquipmentContext{FaultCode: "F30021"})
	if got.Vendor != Siemens {
		t.Errorf("Structured fault code should detect siemens, got %q", got.Vendor)
	}
}

func TestDetectNoMatch(t *testing.T) {
	got := Detect("conveyor belt squeaks near the gearbox", models.EquipmentContext{})
	if got.Vendor != None {
		t.Errorf("Expected no vendor, got %q", got.Vendor)
	}
	if got.Source != "" {
		t.Errorf("Expected empty source, got %q", got.Source)
	}

	// Unknown manufacturer string falls through to the other signals.
	got = Detect("spindle vibration at high rpm", models.EquipmentContext{Manufacturer: "Acme Machining"})
	if got.Vendor != None {
		t.Errorf("Unknown manufacturer should not match, got %q", got.Vendor)
	}
}

func TestDetectDeterministicOrder(t *testing.T) {
	// Mentions both vendors; fixed scan order means siemens wins every time.
	for i := 0; i < 20; i++ {
		got := Detect("replace PowerFlex drive with SINAMICS G120", models.EquipmentContext{})
		if got.Vendor != Siemens {
			t.Fatalf("Iteration %d: expected siemens by scan order, got %q", i, got.Vendor)
		}
	}
}
