// Package txb assembles multi-step call intents. Steps may consume outputs of
// earlier steps; the builder checks shapes and ordering, nothing more.
package txb

import (
	"errors"
	"fmt"
)

// CommandKind names the command variants of an intent.
type CommandKind string

const (
	CommandMoveCall        CommandKind = "MoveCall"
	CommandSplitCoins      CommandKind = "SplitCoins"
	CommandMergeCoins      CommandKind = "MergeCoins"
	CommandTransferObjects CommandKind = "TransferObjects"
)

// Command is one step of an intent.
type Command struct {
	Kind     CommandKind
	Package  string
	Entry    EntryPoint
	TypeArgs []string
	Args     []Arg
	// Outputs is the number of addressable results.
	Outputs int
}

func (c Command) describe(i int) string {
	args := make([]string, len(c.Args))
	for j, a := range c.Args {
		args[j] = a.String()
	}
	switch c.Kind {
	case CommandMoveCall:
		return fmt.Sprintf("#%d %s%s(%s)", i, c.Entry.Target(c.Package), typeList(c.TypeArgs), joinArgs(c.Entry, args))
	default:
		return fmt.Sprintf("#%d %s(%s)", i, c.Kind, join(args))
	}
}

// StepHandle refers to a step added to a builder. Its outputs may be passed
// as arguments to later steps of the same builder.
type StepHandle struct {
	b    *Builder
	step int
}

func (h StepHandle) Index() int { return h.step }

// Out returns the named output of a call step.
func (h StepHandle) Out(name string) Arg {
	if h.b == nil || h.step >= len(h.b.commands) {
		return Arg{Kind: ArgResult, err: fmt.Errorf("output %q of unknown step", name)}
	}
	cmd := h.b.commands[h.step]
	idx, ok := cmd.Entry.outputIndex(name)
	if !ok {
		return Arg{Kind: ArgResult, err: fmt.Errorf("step #%d %s has no output %q", h.step, cmd.Entry.Name, name)}
	}
	return Arg{Kind: ArgResult, Step: h.step, Index: idx, builder: h.b}
}

// Nth returns the i-th result of a step, used for split coins.
func (h StepHandle) Nth(i int) Arg {
	if h.b == nil || h.step >= len(h.b.commands) {
		return Arg{Kind: ArgResult, err: fmt.Errorf("result %d of unknown step", i)}
	}
	if i < 0 || i >= h.b.commands[h.step].Outputs {
		return Arg{Kind: ArgResult, err: fmt.Errorf("step #%d has no result %d", h.step, i)}
	}
	return Arg{Kind: ArgResult, Step: h.step, Index: i, builder: h.b}
}

// Result references the whole result of a step.
func (h StepHandle) Result() Arg {
	if h.b == nil {
		return Arg{Kind: ArgResult, err: errors.New("result of unknown step")}
	}
	return Arg{Kind: ArgResult, Step: h.step, Index: -1, builder: h.b}
}

// ReturnBinding names a return value of a step.
type ReturnBinding struct {
	Step   int
	Output int
	Type   string
}

// EventBinding names a field of the first event of a type.
type EventBinding struct {
	EventType string
	Field     string
}

// Builder accumulates steps. Construction errors are collected and reported
// by Build so call sites can chain without checking each step.
type Builder struct {
	sender   string
	commands []Command
	returns  map[string]ReturnBinding
	events   map[string]EventBinding
	errs     []error
}

func New(sender string) *Builder {
	return &Builder{
		sender:  sender,
		returns: make(map[string]ReturnBinding),
		events:  make(map[string]EventBinding),
	}
}

func (b *Builder) SetSender(sender string) { b.sender = sender }

func (b *Builder) Len() int { return len(b.commands) }

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// MoveCall appends a contract call. Argument count, kinds and type arity must
// match the entry point.
func (b *Builder) MoveCall(pkg string, ep EntryPoint, typeArgs []string, args ...Arg) StepHandle {
	step := len(b.commands)
	if pkg == "" {
		b.fail("step #%d %s: empty package", step, ep.Name)
	}
	if len(args) != len(ep.Params) {
		b.fail("step #%d %s: want %d args, got %d", step, ep.Name, len(ep.Params), len(args))
	}
	if len(typeArgs) != ep.TypeParams {
		b.fail("step #%d %s: want %d type args, got %d", step, ep.Name, ep.TypeParams, len(typeArgs))
	}
	for i, t := range typeArgs {
		if t == "" {
			b.fail("step #%d %s: empty type arg %d", step, ep.Name, i)
		}
	}
	for i, a := range args {
		if !b.checkArg(step, ep.Name, i, a) || i >= len(ep.Params) {
			continue
		}
		p := ep.Params[i]
		if !accepts(p, a) {
			b.fail("step #%d %s: param %s wants %s, got %s", step, ep.Name, p.Name, kindName(p.Kind), a.Kind)
		}
	}
	b.commands = append(b.commands, Command{
		Kind:     CommandMoveCall,
		Package:  pkg,
		Entry:    ep,
		TypeArgs: append([]string(nil), typeArgs...),
		Args:     append([]Arg(nil), args...),
		Outputs:  len(ep.Outputs),
	})
	return StepHandle{b: b, step: step}
}

// SplitCoins splits amounts off coin; result i is the i-th new coin.
func (b *Builder) SplitCoins(coin Arg, amounts ...Arg) StepHandle {
	step := len(b.commands)
	if len(amounts) == 0 {
		b.fail("step #%d SplitCoins: no amounts", step)
	}
	b.checkObjectLike(step, "SplitCoins", 0, coin)
	for i, a := range amounts {
		if b.checkArg(step, "SplitCoins", i+1, a) && a.Kind != ArgPure && a.Kind != ArgResult {
			b.fail("step #%d SplitCoins: amount %d must be pure, got %s", step, i, a.Kind)
		}
	}
	b.commands = append(b.commands, Command{
		Kind:    CommandSplitCoins,
		Args:    append([]Arg{coin}, amounts...),
		Outputs: len(amounts),
	})
	return StepHandle{b: b, step: step}
}

// MergeCoins merges sources into dst.
func (b *Builder) MergeCoins(dst Arg, sources ...Arg) StepHandle {
	step := len(b.commands)
	if len(sources) == 0 {
		b.fail("step #%d MergeCoins: no sources", step)
	}
	b.checkObjectLike(step, "MergeCoins", 0, dst)
	for i, a := range sources {
		b.checkObjectLike(step, "MergeCoins", i+1, a)
	}
	b.commands = append(b.commands, Command{
		Kind: CommandMergeCoins,
		Args: append([]Arg{dst}, sources...),
	})
	return StepHandle{b: b, step: step}
}

// TransferObjects sends objects to recipient, a pure address.
func (b *Builder) TransferObjects(objects []Arg, recipient Arg) StepHandle {
	step := len(b.commands)
	if len(objects) == 0 {
		b.fail("step #%d TransferObjects: no objects", step)
	}
	for i, a := range objects {
		b.checkObjectLike(step, "TransferObjects", i, a)
	}
	if b.checkArg(step, "TransferObjects", len(objects), recipient) && recipient.Kind != ArgPure {
		b.fail("step #%d TransferObjects: recipient must be pure, got %s", step, recipient.Kind)
	}
	b.commands = append(b.commands, Command{
		Kind: CommandTransferObjects,
		Args: append(append([]Arg(nil), objects...), recipient),
	})
	return StepHandle{b: b, step: step}
}

// BindReturn names the output of a call step for the decoder.
func (b *Builder) BindReturn(name string, h StepHandle, output string) {
	if h.b != b || h.step >= len(b.commands) {
		b.fail("bind %q: handle from another builder", name)
		return
	}
	if _, dup := b.returns[name]; dup {
		b.fail("bind %q: duplicate binding", name)
		return
	}
	cmd := b.commands[h.step]
	idx, ok := cmd.Entry.outputIndex(output)
	if !ok {
		b.fail("bind %q: step #%d %s has no output %q", name, h.step, cmd.Entry.Name, output)
		return
	}
	b.returns[name] = ReturnBinding{Step: h.step, Output: idx, Type: cmd.Entry.Outputs[idx].Type}
}

// BindEvent names a field of the first emitted event of eventType. The event
// type is matched by suffix so callers need not know the package id.
func (b *Builder) BindEvent(name, eventType, field string) {
	if _, dup := b.events[name]; dup {
		b.fail("bind %q: duplicate binding", name)
		return
	}
	if eventType == "" || field == "" {
		b.fail("bind %q: empty event type or field", name)
		return
	}
	b.events[name] = EventBinding{EventType: eventType, Field: field}
}

// Build returns the assembled intent or every construction error.
func (b *Builder) Build() (*Intent, error) {
	errs := append([]error(nil), b.errs...)
	if b.sender == "" {
		errs = append(errs, errors.New("sender not set"))
	}
	if len(b.commands) == 0 {
		errs = append(errs, errors.New("no steps"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("build intent: %w", errors.Join(errs...))
	}
	intent := &Intent{
		Sender:   b.sender,
		Commands: append([]Command(nil), b.commands...),
		Returns:  make(map[string]ReturnBinding, len(b.returns)),
		Events:   make(map[string]EventBinding, len(b.events)),
	}
	for k, v := range b.returns {
		intent.Returns[k] = v
	}
	for k, v := range b.events {
		intent.Events[k] = v
	}
	return intent, nil
}

// checkArg validates provenance; it reports false when the argument is unusable.
func (b *Builder) checkArg(step int, what string, pos int, a Arg) bool {
	if a.err != nil {
		b.fail("step #%d %s: arg %d: %w", step, what, pos, a.err)
		return false
	}
	if a.Kind != ArgResult {
		return true
	}
	if a.builder != b {
		b.fail("step #%d %s: arg %d references a step of another builder", step, what, pos)
		return false
	}
	if a.Step >= step {
		b.fail("step #%d %s: arg %d references step #%d which is not earlier", step, what, pos, a.Step)
		return false
	}
	return true
}

func (b *Builder) checkObjectLike(step int, what string, pos int, a Arg) {
	if b.checkArg(step, what, pos, a) && a.Kind == ArgPure {
		b.fail("step #%d %s: arg %d must be an object, got pure", step, what, pos)
	}
}

func accepts(p Param, a Arg) bool {
	switch p.Kind {
	case ParamPure:
		if a.Kind == ArgPure {
			return p.Type == "" || p.Type == a.PureType
		}
		return a.Kind == ArgResult
	case ParamObject:
		return a.Kind == ArgObject || a.Kind == ArgResult || a.Kind == ArgGas
	}
	return false
}

func kindName(k ParamKind) string {
	if k == ParamPure {
		return "pure"
	}
	return "object"
}
