package model

import "encoding/json"

const (
	DiagnosticSimulation = "simulation"
	DiagnosticDecode     = "decode_invariant"
	DiagnosticNetwork    = "network"
)

// SimulationDiagnostic records a failed simulation for later inspection.
type SimulationDiagnostic struct {
	Kind     string          `json:"kind"`
	Label    string          `json:"label"`
	Sender   string          `json:"sender"`
	Steps    []string        `json:"steps"`
	Error    string          `json:"error"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Occurred string          `json:"occurred"`
}
