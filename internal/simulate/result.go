package simulate

import "encoding/json"

// Diagnostics is optional detail about how a value was produced.
type Diagnostics struct {
	Steps       []string        `json:"steps,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
	Simulations int             `json:"simulations"`
	ProbeIndex  int             `json:"probe_index"`
	Notes       []string        `json:"notes,omitempty"`
}

// Result pairs a value with its diagnostics. Every preview returns this
// shape; callers read Diagnostics only when they need it.
type Result[T any] struct {
	Value       T           `json:"value"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Observe records a simulation outcome in d.
func (d *Diagnostics) Observe(out *Outcome) {
	d.Simulations++
	d.Steps = out.Intent().Describe()
	d.Raw = out.Raw()
}

func (d *Diagnostics) Note(msg string) {
	d.Notes = append(d.Notes, msg)
}
