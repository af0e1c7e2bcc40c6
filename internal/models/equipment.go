package models

// EquipmentContext carries optional caller-supplied equipment details that
// sharpen both routing and confidence scoring.
type EquipmentContext struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	ModelNumber  string `json:"model_number,omitempty"`
	FaultCode    string `json:"fault_code,omitempty"`
}

// Empty reports whether no field is set.
func (c *EquipmentContext) Empty() bool {
	return c == nil || (c.Manufacturer == "" && c.ModelNumber == "" && c.FaultCode == "")
}
