package simulate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/tidwall/gjson"

	"yieldScope/internal/amount"
	"yieldScope/internal/chain"
	"yieldScope/internal/codec"
	"yieldScope/internal/simerr"
	"yieldScope/internal/txb"
)

// Outcome is a successful simulation read through the intent's bindings.
type Outcome struct {
	intent *txb.Intent
	resp   *chain.SimulateResponse
}

func (o *Outcome) Intent() *txb.Intent { return o.intent }

func (o *Outcome) Raw() json.RawMessage { return o.resp.Raw }

func (o *Outcome) Events() []chain.Event { return o.resp.Events }

func (o *Outcome) invariant(binding, format string, args ...any) error {
	return &simerr.DecodeInvariantError{
		Binding: binding,
		Reason:  fmt.Sprintf(format, args...),
		Steps:   o.intent.Describe(),
		Raw:     o.resp.Raw,
	}
}

// check verifies every binding resolves.
func (o *Outcome) check() error {
	for name := range o.intent.Returns {
		if _, err := o.returnBytes(name); err != nil {
			return err
		}
	}
	for name := range o.intent.Events {
		if _, err := o.EventField(name); err != nil {
			return err
		}
	}
	return nil
}

func (o *Outcome) returnBytes(name string) ([]byte, error) {
	binding, ok := o.intent.Returns[name]
	if !ok {
		return nil, o.invariant(name, "no such return binding")
	}
	if binding.Step >= len(o.resp.Results) {
		return nil, o.invariant(name, "response has %d step results, want step %d", len(o.resp.Results), binding.Step)
	}
	values := o.resp.Results[binding.Step].ReturnValues
	if binding.Output >= len(values) {
		return nil, o.invariant(name, "step %d returned %d values, want output %d", binding.Step, len(values), binding.Output)
	}
	rv := values[binding.Output]
	if binding.Type != "" && rv.Type != "" && rv.Type != binding.Type {
		return nil, o.invariant(name, "want type %s, got %s", binding.Type, rv.Type)
	}
	return rv.Bytes, nil
}

// U64 decodes a bound u64 return value.
func (o *Outcome) U64(name string) (uint64, error) {
	b, err := o.returnBytes(name)
	if err != nil {
		return 0, err
	}
	v, err := codec.DecodeU64(b)
	if err != nil {
		return 0, o.invariant(name, "%v", err)
	}
	return v, nil
}

// Amount decodes a bound u64 return value as a token quantity.
func (o *Outcome) Amount(name string, decimals uint8) (amount.Quantity, error) {
	b, err := o.returnBytes(name)
	if err != nil {
		return amount.Quantity{}, err
	}
	q, err := codec.DecodeAmount(b, decimals)
	if err != nil {
		return amount.Quantity{}, o.invariant(name, "%v", err)
	}
	return q, nil
}

// Fixed64 decodes a bound Q64.64 return value.
func (o *Outcome) Fixed64(name string) (amount.Quantity, error) {
	b, err := o.returnBytes(name)
	if err != nil {
		return amount.Quantity{}, err
	}
	q, err := codec.DecodeU128Fixed64(b)
	if err != nil {
		return amount.Quantity{}, o.invariant(name, "%v", err)
	}
	return q, nil
}

// EventField returns the bound event field as a string.
func (o *Outcome) EventField(name string) (string, error) {
	binding, ok := o.intent.Events[name]
	if !ok {
		return "", o.invariant(name, "no such event binding")
	}
	for _, ev := range o.resp.Events {
		if !ev.Matches(binding.EventType) {
			continue
		}
		field := gjson.GetBytes(ev.ParsedJSON, binding.Field)
		if !field.Exists() {
			return "", o.invariant(name, "event %s has no field %s", binding.EventType, binding.Field)
		}
		return field.String(), nil
	}
	return "", o.invariant(name, "no %s event emitted", binding.EventType)
}

// EventAmount decodes a bound event field holding base units.
func (o *Outcome) EventAmount(name string, decimals uint8) (amount.Quantity, error) {
	s, err := o.EventField(name)
	if err != nil {
		return amount.Quantity{}, err
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok || raw.Sign() < 0 {
		return amount.Quantity{}, o.invariant(name, "invalid amount %q", s)
	}
	return amount.FromBaseUnits(raw, decimals), nil
}
