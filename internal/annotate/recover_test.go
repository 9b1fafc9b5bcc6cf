package annotate

import (
	"testing"
)

func TestRecoverDirectJSON(t *testing.T) {
	raw := `{"summary":"S","highlights":["h1"],"keywords":["k1","k2"],"action_items":[{"assignee":"ana","action":"send report","due":"2026-01-10"}]}`
	note := Recover(raw)
	if note.Summary != "S" {
		t.Errorf("summary = %q", note.Summary)
	}
	if len(note.Keywords) != 2 || note.Keywords[0] != "k1" {
		t.Errorf("keywords = %v", note.Keywords)
	}
	if len(note.ActionItems) != 1 || note.ActionItems[0].Assignee != "ana" {
		t.Errorf("action items = %v", note.ActionItems)
	}
}

func TestRecoverTrailingObject(t *testing.T) {
	raw := "Sure! Here is the JSON you asked for:\n" +
		`{"summary":"trailing","highlights":[],"keywords":["x"],"action_items":[]}`
	note := Recover(raw)
	if note.Summary != "trailing" {
		t.Errorf("summary = %q, want trailing", note.Summary)
	}
	if len(note.Keywords) != 1 || note.Keywords[0] != "x" {
		t.Errorf("keywords = %v", note.Keywords)
	}
}

func TestRecoverEmbeddedObject(t *testing.T) {
	raw := `The note {"summary":"embedded"} and then some trailing prose with no braces`
	note := Recover(raw)
	if note.Summary != "embedded" {
		t.Errorf("summary = %q, want embedded", note.Summary)
	}
	if note.Keywords == nil || note.Highlights == nil || note.ActionItems == nil {
		t.Error("recovered note has nil lists")
	}
}

func TestRecoverProseFallback(t *testing.T) {
	note := Recover("Nothing to parse here")
	if note.Summary != "Nothing to parse here" {
		t.Errorf("summary = %q", note.Summary)
	}
	if len(note.Highlights) != 0 || len(note.Keywords) != 0 || len(note.ActionItems) != 0 {
		t.Errorf("fallback lists not empty: %+v", note)
	}
}

func TestRecoverNullActionFields(t *testing.T) {
	raw := `{"summary":"S","highlights":[],"keywords":[],"action_items":[{"assignee":null,"action":"do it","due":null}]}`
	note := Recover(raw)
	if len(note.ActionItems) != 1 {
		t.Fatalf("action items = %v", note.ActionItems)
	}
	if note.ActionItems[0].Action != "do it" || note.ActionItems[0].Assignee != "" {
		t.Errorf("action item = %+v", note.ActionItems[0])
	}
}

func TestRecoverWhitespaceOnly(t *testing.T) {
	note := Recover("   \n\t ")
	if note.Summary != "" {
		t.Errorf("summary = %q, want empty", note.Summary)
	}
	if note.Keywords == nil {
		t.Error("keywords nil")
	}
}
