// Package guardrail bounds the tool invocations a generation step may
// trigger: at most one distinct tool call executes per turn, and an
// identical repeat never executes twice.
package guardrail

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/llm"
)

// ErrUnknownTool is returned when the model proposes a tool that is not
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Func executes one tool call and returns the result text fed back to the
// model.
type Func func(ctx context.Context, args json.RawMessage) (string, error)

// Registry maps tool names to their definitions and implementations.
type Registry struct {
	defs  []llm.ToolDef
	funcs map[string]Func
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds a tool. Re-registering a name replaces its implementation.
func (r *Registry) Register(def llm.ToolDef, fn Func) {
	if _, exists := r.funcs[def.Name]; !exists {
		r.defs = append(r.defs, def)
	}
	r.funcs[def.Name] = fn
}

// Defs returns the tool definitions to advertise to the model.
func (r *Registry) Defs() []llm.ToolDef {
	return r.defs
}

// Outcome classifies what happened to one proposed tool call.
type Outcome string

const (
	OutcomeExecuted  Outcome = "executed"
	OutcomeDuplicate Outcome = "discarded_duplicate"
	OutcomeOverLimit Outcome = "discarded_over_limit"
	OutcomeFailed    Outcome = "failed"
)

// Record is the audit trail for one proposed call within a turn.
type Record struct {
	Call    llm.ToolCall
	ArgHash string
	Outcome Outcome
	Result  string // tool output or error text fed back to the model
}

// Turn tracks tool execution for a single request turn. It is not shared
// across requests.
type Turn struct {
	registry *Registry
	seen     map[string]struct{} // name + normalized arg hash
	executed bool
	records  []Record
}

// NewTurn starts a fresh turn over the registry.
func NewTurn(registry *Registry) *Turn {
	return &Turn{registry: registry, seen: make(map[string]struct{})}
}

// Records returns every proposed call and its outcome, in proposal order.
func (t *Turn) Records() []Record {
	return t.records
}

// HandleAll applies the guardrail to the model's proposed calls: the first
// distinct call executes, duplicates and everything past the first are
// discarded with a logged reason. The returned messages (one per proposal)
// are appended to the conversation so the model sees each call answered.
//
// A failing tool produces a tool-error message, not a request failure.
func (t *Turn) HandleAll(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	msgs := make([]llm.Message, 0, len(calls))
	for _, call := range calls {
		rec := t.handle(ctx, call)
		t.records = append(t.records, rec)
		msgs = append(msgs, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Content:    rec.Result,
		})
	}
	return msgs
}

func (t *Turn) handle(ctx context.Context, call llm.ToolCall) Record {
	rec := Record{Call: call, ArgHash: normalizeArgs(call.Arguments)}
	dedupKey := call.Name + ":" + rec.ArgHash

	if _, dup := t.seen[dedupKey]; dup {
		rec.Outcome = OutcomeDuplicate
		rec.Result = "tool call skipped: identical call already handled this turn"
		slog.Info("tool call discarded", "tool", call.Name, "reason", "duplicate")
		return rec
	}
	t.seen[dedupKey] = struct{}{}

	if t.executed {
		rec.Outcome = OutcomeOverLimit
		rec.Result = "tool call skipped: tool budget for this turn is already spent"
		slog.Info("tool call discarded", "tool", call.Name, "reason", "over_limit")
		return rec
	}

	fn, ok := t.registry.funcs[call.Name]
	if !ok {
		rec.Outcome = OutcomeFailed
		rec.Result = fmt.Sprintf("tool error: %v: %s", ErrUnknownTool, call.Name)
		slog.Warn("unknown tool proposed", "tool", call.Name)
		return rec
	}

	t.executed = true
	result, err := fn(ctx, call.Arguments)
	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.Result = fmt.Sprintf("tool error: %v", err)
		slog.Warn("tool execution failed", "tool", call.Name, "error", err)
		return rec
	}

	rec.Outcome = OutcomeExecuted
	rec.Result = result
	return rec
}

// Executed reports whether this turn has spent its single execution.
func (t *Turn) Executed() bool {
	return t.executed
}

// normalizeArgs hashes a canonical rendering of the JSON arguments so that
// key order and insignificant whitespace never defeat deduplication.
func normalizeArgs(args json.RawMessage) string {
	canonical := canonicalJSON(args)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func canonicalJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v any) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			writeCanonical(sb, x[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, e)
		}
		sb.WriteByte(']')
	default:
		b, _ := json.Marshal(x)
		sb.Write(b)
	}
}
