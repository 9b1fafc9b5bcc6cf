// Package annotate derives a structured note (summary, highlights,
// keywords, action items) from transcript text. The provider boundary
// never fails: malformed output is recovered best-effort and transport
// failures degrade to an empty note.
package annotate

import (
	"context"

	"audio-notes-go/internal/types"
)

// Annotator produces a structured note from a transcript. The boolean
// reports degradation: true means the provider call failed and the note
// carries no content. Callers treat degraded notes as still persistable.
type Annotator interface {
	Annotate(ctx context.Context, transcript string) (types.StructuredNote, bool)
}

// emptyNote is what a degraded annotation produces: summary present but
// empty, all lists empty.
func emptyNote() types.StructuredNote {
	return types.StructuredNote{
		Highlights:  []string{},
		Keywords:    []string{},
		ActionItems: []types.ActionItem{},
	}
}
