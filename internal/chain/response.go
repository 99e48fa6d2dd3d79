package chain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SimulateResponse is the ledger's dev-inspect style simulation result.
type SimulateResponse struct {
	Error   string          `json:"error"`
	Results []StepResult    `json:"results"`
	Events  []Event         `json:"events"`
	Raw     json.RawMessage `json:"-"`
}

type StepResult struct {
	ReturnValues []ReturnValue `json:"returnValues"`
}

// ReturnValue is one typed return value, encoded on the wire as
// [[byte, ...], "type"].
type ReturnValue struct {
	Bytes []byte
	Type  string
}

func (r *ReturnValue) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode return value: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode return value: want [bytes, type], got %d elements", len(pair))
	}
	var ints []int
	if err := json.Unmarshal(pair[0], &ints); err != nil {
		return fmt.Errorf("decode return bytes: %w", err)
	}
	bytes := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("decode return bytes: value %d out of range", v)
		}
		bytes[i] = byte(v)
	}
	if err := json.Unmarshal(pair[1], &r.Type); err != nil {
		return fmt.Errorf("decode return type: %w", err)
	}
	r.Bytes = bytes
	return nil
}

func (r ReturnValue) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(r.Bytes))
	for i, b := range r.Bytes {
		ints[i] = int(b)
	}
	return json.Marshal([]any{ints, r.Type})
}

// Event is an emitted event with its fields decoded to JSON.
type Event struct {
	Type       string          `json:"type"`
	ParsedJSON json.RawMessage `json:"parsedJson"`
}

// Matches reports whether the event's type ends with eventType, so
// "market::LiquidityAdded" matches "0xabc::market::LiquidityAdded".
func (e Event) Matches(eventType string) bool {
	return e.Type == eventType || strings.HasSuffix(e.Type, "::"+eventType)
}

// ParseSimulateResponse decodes raw and keeps it for diagnostics.
func ParseSimulateResponse(raw json.RawMessage) (*SimulateResponse, error) {
	var resp SimulateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode simulate response: %w", err)
	}
	resp.Raw = raw
	return &resp, nil
}
