package report

import (
	"encoding/json"
	"errors"
	"testing"
)

const sampleFinding = `{
	"label": "Forced entry at rear door",
	"outcome": "observed",
	"visual_observation": "Door frame splintered near the strike plate.",
	"narrated_observation": "Narrator states the door was pried open.",
	"start_time": "00:00:05:120",
	"end_time": "00:00:12:480",
	"best_frame_time": "00:00:08:000",
	"evidence": [
		{
			"label": "Pry bar",
			"visual_observation": "Metal bar resting against the door sill.",
			"narrated_observation": "Narrator identifies a pry bar on the ground.",
			"start_time": "00:00:09:200"
		}
	]
}`

func TestAssembleBareArray(t *testing.T) {
	entries, err := Assemble(json.RawMessage("[" + sampleFinding + "]"))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Label != "Forced entry at rear door" {
		t.Fatalf("unexpected label %q", entry.Label)
	}
	if entry.Outcome != "observed" {
		t.Fatalf("unexpected outcome %q", entry.Outcome)
	}
	if entry.StartTime != "00:00:05:120" || entry.EndTime != "00:00:12:480" {
		t.Fatalf("unexpected time range %q..%q", entry.StartTime, entry.EndTime)
	}
	if entry.BestFrameTime != "00:00:08:000" {
		t.Fatalf("unexpected best frame time %q", entry.BestFrameTime)
	}
	if len(entry.Evidence) != 1 {
		t.Fatalf("expected 1 evidence item, got %d", len(entry.Evidence))
	}
	if entry.Evidence[0].Label != "Pry bar" || entry.Evidence[0].StartTime != "00:00:09:200" {
		t.Fatalf("evidence not carried through: %+v", entry.Evidence[0])
	}
}

func TestAssembleFindingsEnvelope(t *testing.T) {
	entries, err := Assemble(json.RawMessage(`{"findings": [` + sampleFinding + `]}`))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(entries) != 1 || entries[0].Label != "Forced entry at rear door" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestAssembleStripsCodeFences(t *testing.T) {
	raw := "```json\n[" + sampleFinding + "]\n```"
	entries, err := Assemble(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestAssembleEmptyFindingsIsValid(t *testing.T) {
	for _, raw := range []string{"[]", `{"findings": []}`} {
		entries, err := Assemble(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("assemble %q: %v", raw, err)
		}
		if entries == nil {
			t.Fatalf("assemble %q: expected empty slice, got nil", raw)
		}
		if len(entries) != 0 {
			t.Fatalf("assemble %q: expected no entries, got %d", raw, len(entries))
		}
	}
}

func TestAssembleNormalizesMissingEvidence(t *testing.T) {
	raw := `[{"label": "Broken window", "outcome": "observed", "start_time": "00:00:01:000", "end_time": "00:00:03:000"}]`
	entries, err := Assemble(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if entries[0].Evidence == nil {
		t.Fatal("expected empty evidence slice, got nil")
	}
	if len(entries[0].Evidence) != 0 {
		t.Fatalf("expected no evidence, got %d", len(entries[0].Evidence))
	}
}

func TestAssembleRejectsMalformedOutput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t"},
		{"bare fence", "```\n```"},
		{"invalid json", "{not json"},
		{"no findings field", `{"results": []}`},
		{"missing label", `[{"outcome": "observed", "start_time": "00:00:01:000", "end_time": "00:00:02:000"}]`},
		{"null outcome", `[{"label": "x", "outcome": null, "start_time": "00:00:01:000", "end_time": "00:00:02:000"}]`},
		{"blank outcome", `[{"label": "x", "outcome": " ", "start_time": "00:00:01:000", "end_time": "00:00:02:000"}]`},
		{"missing outcome", `[{"label": "x", "start_time": "00:00:01:000", "end_time": "00:00:02:000"}]`},
		{"missing start time", `[{"label": "x", "outcome": "observed", "end_time": "00:00:02:000"}]`},
		{"missing end time", `[{"label": "x", "outcome": "observed", "start_time": "00:00:01:000"}]`},
	}
	for _, tc := range cases {
		if _, err := Assemble(json.RawMessage(tc.raw)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", tc.name, err)
		}
	}
}
