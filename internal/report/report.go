// Package report renders recent notes into an Excel workbook for the
// export endpoint.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"audio-notes-go/internal/types"
)

const (
	notesSheet    = "Notes"
	keywordsSheet = "Keywords"
)

// WriteNotes writes one row per note plus a keyword-frequency sheet.
func WriteNotes(w io.Writer, notes []types.Note) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", notesSheet)
	headers := []string{"Recording ID", "Created", "Language", "Summary", "Keywords", "Action Items"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(notesSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, n := range notes {
		row := i + 2
		values := []interface{}{
			n.RecordingID.Hex(),
			n.CreatedAt.Format("2006-01-02 15:04:05"),
			n.Language,
			n.Summary,
			strings.Join(n.Keywords, ", "),
			formatActionItems(n.ActionItems),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(notesSheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	if _, err := f.NewSheet(keywordsSheet); err != nil {
		return fmt.Errorf("keywords sheet: %w", err)
	}
	f.SetCellValue(keywordsSheet, "A1", "Keyword")
	f.SetCellValue(keywordsSheet, "B1", "Count")
	for i, kc := range KeywordCounts(notes) {
		f.SetCellValue(keywordsSheet, fmt.Sprintf("A%d", i+2), kc.Keyword)
		f.SetCellValue(keywordsSheet, fmt.Sprintf("B%d", i+2), kc.Count)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type KeywordCount struct {
	Keyword string
	Count   int
}

// KeywordCounts tallies keyword usage across notes, most frequent first,
// ties broken alphabetically.
func KeywordCounts(notes []types.Note) []KeywordCount {
	counts := map[string]int{}
	for _, n := range notes {
		for _, k := range n.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				counts[k]++
			}
		}
	}
	out := make([]KeywordCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, KeywordCount{Keyword: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}

func formatActionItems(items []types.ActionItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		s := it.Action
		if it.Assignee != "" {
			s = it.Assignee + ": " + s
		}
		if it.Due != "" {
			s += " (due " + it.Due + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}
