package annotate

import (
	"encoding/json"
	"strings"

	"audio-notes-go/internal/types"
)

// Recover turns a raw model response into a StructuredNote. The model is
// asked for strict JSON but frequently wraps it in prose, so recovery is
// staged: parse the whole response, then a trailing {...} block, then the
// first {...} block anywhere. When nothing parses, the trimmed response
// itself becomes the summary so the annotation step never fails upward.
func Recover(raw string) types.StructuredNote {
	if note, ok := parseNote(raw); ok {
		return note
	}
	if block := trailingObject(raw); block != "" {
		if note, ok := parseNote(block); ok {
			return note
		}
	}
	if block := firstObject(raw); block != "" {
		if note, ok := parseNote(block); ok {
			return note
		}
	}
	note := emptyNote()
	note.Summary = strings.TrimSpace(raw)
	return note
}

func parseNote(s string) (types.StructuredNote, bool) {
	var note types.StructuredNote
	if err := json.Unmarshal([]byte(s), &note); err != nil {
		return types.StructuredNote{}, false
	}
	if note.Highlights == nil {
		note.Highlights = []string{}
	}
	if note.Keywords == nil {
		note.Keywords = []string{}
	}
	if note.ActionItems == nil {
		note.ActionItems = []types.ActionItem{}
	}
	return note, true
}

// trailingObject returns the outermost {...} block anchored at the end of
// the text, or "".
func trailingObject(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if !strings.HasSuffix(trimmed, "}") {
		return ""
	}
	start := strings.Index(trimmed, "{")
	if start < 0 {
		return ""
	}
	return trimmed[start:]
}

// firstObject returns the first minimal {...} block anywhere in the text,
// or "".
func firstObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.Index(s[start:], "}")
	if end < 0 {
		return ""
	}
	return s[start : start+end+1]
}
