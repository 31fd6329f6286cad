package guardrail

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/llm"
)

func countingRegistry(t *testing.T, counter *int) *Registry {
	t.Helper()
	r := NewRegistry()
	r.Register(
		llm.ToolDef{Name: "search_knowledge_base", Parameters: json.RawMessage(`{"type":"object"}`)},
		func(_ context.Context, _ json.RawMessage) (string, error) {
			*counter++
			return "risultati trovati", nil
		},
	)
	return r
}

func call(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func TestThreeDistinctCallsExecuteExactlyOne(t *testing.T) {
	var executions int
	turn := NewTurn(countingRegistry(t, &executions))

	msgs := turn.HandleAll(context.Background(), []llm.ToolCall{
		call("c1", "search_knowledge_base", `{"query":"iva"}`),
		call("c2", "search_knowledge_base", `{"query":"irpef"}`),
		call("c3", "search_knowledge_base", `{"query":"imu"}`),
	})

	if executions != 1 {
		t.Errorf("executions = %d, want exactly 1", executions)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want one reply per proposed call", len(msgs))
	}

	recs := turn.Records()
	if recs[0].Outcome != OutcomeExecuted {
		t.Errorf("first call outcome = %s, want executed", recs[0].Outcome)
	}
	for _, rec := range recs[1:] {
		if rec.Outcome != OutcomeOverLimit {
			t.Errorf("outcome = %s, want discarded_over_limit", rec.Outcome)
		}
	}
}

func TestIdenticalRepeatNeverExecutesTwice(t *testing.T) {
	var executions int
	turn := NewTurn(countingRegistry(t, &executions))

	turn.HandleAll(context.Background(), []llm.ToolCall{
		call("c1", "search_knowledge_base", `{"query":"iva"}`),
		call("c2", "search_knowledge_base", `{"query":"iva"}`),
	})

	if executions != 1 {
		t.Errorf("executions = %d, want 1 for identical calls", executions)
	}
	if turn.Records()[1].Outcome != OutcomeDuplicate {
		t.Errorf("second outcome = %s, want discarded_duplicate", turn.Records()[1].Outcome)
	}
}

func TestDeduplicationIgnoresKeyOrderAndWhitespace(t *testing.T) {
	var executions int
	turn := NewTurn(countingRegistry(t, &executions))

	turn.HandleAll(context.Background(), []llm.ToolCall{
		call("c1", "search_knowledge_base", `{"query":"iva","k":5}`),
		call("c2", "search_knowledge_base", `{ "k": 5, "query": "iva" }`),
	})

	if executions != 1 {
		t.Errorf("executions = %d, want 1 — equivalent JSON must deduplicate", executions)
	}
}

func TestToolErrorFedBackNotFatal(t *testing.T) {
	r := NewRegistry()
	r.Register(
		llm.ToolDef{Name: "broken", Parameters: json.RawMessage(`{}`)},
		func(_ context.Context, _ json.RawMessage) (string, error) {
			return "", errors.New("backend offline")
		},
	)
	turn := NewTurn(r)

	msgs := turn.HandleAll(context.Background(), []llm.ToolCall{call("c1", "broken", `{}`)})
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Role != llm.RoleTool || !strings.Contains(msgs[0].Content, "tool error") {
		t.Errorf("error should flow back as a tool message: %+v", msgs[0])
	}
	if turn.Records()[0].Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", turn.Records()[0].Outcome)
	}
}

func TestUnknownToolIsReported(t *testing.T) {
	turn := NewTurn(NewRegistry())

	msgs := turn.HandleAll(context.Background(), []llm.ToolCall{call("c1", "ghost", `{}`)})
	if !strings.Contains(msgs[0].Content, "unknown tool") {
		t.Errorf("message = %q, want unknown-tool error", msgs[0].Content)
	}
}

func TestFailedExecutionStillSpendsTheTurn(t *testing.T) {
	// One executed slot per turn, even if the execution failed: the model
	// gets one real attempt, not retries through the guardrail.
	var executions int
	r := NewRegistry()
	r.Register(llm.ToolDef{Name: "flaky"}, func(_ context.Context, _ json.RawMessage) (string, error) {
		executions++
		return "", errors.New("boom")
	})
	turn := NewTurn(r)

	turn.HandleAll(context.Background(), []llm.ToolCall{
		call("c1", "flaky", `{"a":1}`),
		call("c2", "flaky", `{"a":2}`),
	})
	if executions != 1 {
		t.Errorf("executions = %d, want 1", executions)
	}
	if !turn.Executed() {
		t.Error("turn should be marked spent")
	}
}
