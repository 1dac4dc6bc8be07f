package services

// Methodology describes how emissions are calculated, for the public
// methodology endpoint.
type Methodology struct {
	FactorsSource         string   `json:"factors_source"`
	SupportedScopes       []string `json:"supported_scopes"`
	ConfidenceCalculation string   `json:"confidence_calculation"`
	MeasuredVsEstimated   string   `json:"measured_vs_estimated"`
}

func MethodologyDescriptor() Methodology {
	return Methodology{
		FactorsSource: "EPA, DEFRA, and cloud provider sustainability reports",
		SupportedScopes: []string{
			"Scope 1 (direct emissions)",
			"Scope 2 (purchased electricity)",
			"Scope 3 (cloud, commuting, travel, remote work, purchased services)",
		},
		ConfidenceCalculation: "Confidence is derived from source quality (measured/estimated/manual) and data completeness.",
		MeasuredVsEstimated:   "Measured data comes from connected sources; estimated data is modeled from benchmarks; manual data is user-provided.",
	}
}
