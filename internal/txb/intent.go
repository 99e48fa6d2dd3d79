package txb

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Intent is a built, immutable sequence of steps plus the named bindings the
// decoder reads results by.
type Intent struct {
	Sender   string
	Commands []Command
	Returns  map[string]ReturnBinding
	Events   map[string]EventBinding
}

// Describe renders the call graph, one line per step.
func (in *Intent) Describe() []string {
	out := make([]string, len(in.Commands))
	for i, c := range in.Commands {
		out[i] = c.describe(i)
	}
	return out
}

// Count returns how many calls of an entry point the intent makes.
func (in *Intent) Count(entry string) int {
	n := 0
	for _, c := range in.Commands {
		if c.Kind == CommandMoveCall && c.Entry.Name == entry {
			n++
		}
	}
	return n
}

// Find returns the index of the first call of entry, or -1.
func (in *Intent) Find(entry string) int {
	for i, c := range in.Commands {
		if c.Kind == CommandMoveCall && c.Entry.Name == entry {
			return i
		}
	}
	return -1
}

type wireIntent struct {
	Sender   string        `json:"sender"`
	Commands []wireCommand `json:"commands"`
}

type wireCommand struct {
	Kind          CommandKind `json:"kind"`
	Target        string      `json:"target,omitempty"`
	TypeArguments []string    `json:"typeArguments,omitempty"`
	Arguments     []wireArg   `json:"arguments"`
}

type wireArg struct {
	Pure         *hexutil.Bytes `json:"Pure,omitempty"`
	Object       string         `json:"Object,omitempty"`
	Result       *int           `json:"Result,omitempty"`
	NestedResult []int          `json:"NestedResult,omitempty"`
	GasCoin      bool           `json:"GasCoin,omitempty"`
}

func toWireArg(a Arg) wireArg {
	switch a.Kind {
	case ArgPure:
		b := hexutil.Bytes(a.Pure)
		return wireArg{Pure: &b}
	case ArgObject:
		return wireArg{Object: a.Object}
	case ArgResult:
		if a.Index < 0 {
			step := a.Step
			return wireArg{Result: &step}
		}
		return wireArg{NestedResult: []int{a.Step, a.Index}}
	default:
		return wireArg{GasCoin: true}
	}
}

// MarshalJSON encodes the intent in the ledger's wire form.
func (in *Intent) MarshalJSON() ([]byte, error) {
	w := wireIntent{Sender: in.Sender, Commands: make([]wireCommand, len(in.Commands))}
	for i, c := range in.Commands {
		wc := wireCommand{Kind: c.Kind, Arguments: make([]wireArg, len(c.Args))}
		if c.Kind == CommandMoveCall {
			wc.Target = c.Entry.Target(c.Package)
			wc.TypeArguments = c.TypeArgs
		}
		for j, a := range c.Args {
			wc.Arguments[j] = toWireArg(a)
		}
		w.Commands[i] = wc
	}
	return json.Marshal(w)
}

// Bytes returns the wire form, used for signing and submission.
func (in *Intent) Bytes() ([]byte, error) {
	b, err := in.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode intent: %w", err)
	}
	return b, nil
}

func typeList(types []string) string {
	if len(types) == 0 {
		return ""
	}
	return "<" + strings.Join(types, ", ") + ">"
}

func joinArgs(ep EntryPoint, args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if i < len(ep.Params) {
			parts[i] = ep.Params[i].Name + "=" + a
			continue
		}
		parts[i] = a
	}
	return join(parts)
}

func join(parts []string) string { return strings.Join(parts, ", ") }
