package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"audio-notes-go/internal/types"
)

func sampleNotes() []types.Note {
	return []types.Note{
		{
			RecordingID: primitive.NewObjectID(),
			Summary:     "weekly sync recap",
			Keywords:    []string{"roadmap", "budget"},
			ActionItems: []types.ActionItem{{Assignee: "sam", Action: "share deck", Due: "2026-09-01"}},
			CreatedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			RecordingID: primitive.NewObjectID(),
			Summary:     "planning notes",
			Keywords:    []string{"Budget", "hiring"},
			CreatedAt:   time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteNotes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNotes(&buf, sampleNotes()); err != nil {
		t.Fatalf("WriteNotes: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue(notesSheet, "D2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if got != "weekly sync recap" {
		t.Errorf("D2 = %q", got)
	}
	got, _ = f.GetCellValue(notesSheet, "F2")
	if got != "sam: share deck (due 2026-09-01)" {
		t.Errorf("F2 = %q", got)
	}
	if kw, _ := f.GetCellValue(keywordsSheet, "A2"); kw != "budget" {
		t.Errorf("top keyword = %q, want budget", kw)
	}
}

func TestKeywordCounts(t *testing.T) {
	counts := KeywordCounts(sampleNotes())
	if len(counts) != 3 {
		t.Fatalf("counts = %v", counts)
	}
	if counts[0].Keyword != "budget" || counts[0].Count != 2 {
		t.Errorf("top = %+v, want budget x2 (case folded)", counts[0])
	}
	// ties broken alphabetically
	if counts[1].Keyword != "hiring" || counts[2].Keyword != "roadmap" {
		t.Errorf("tail = %+v", counts[1:])
	}
}
