package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// exportHeader is the column order of the delimited export.
var exportHeader = []string{
	"created_at", "table_name", "record_id", "action",
	"actor_id", "source_ip", "user_agent", "old_values", "new_values",
}

// Export writes the entries matching the filter to w as tab-delimited
// text, newest first, one header row followed by one row per entry.
// Returns the number of entries written.
func (r *Recorder) Export(w io.Writer, f Filter) (int, error) {
	entries, err := r.Query(f)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("writing export header: %w", err)
	}
	for i, e := range entries {
		row := []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.TableName,
			e.RecordID,
			e.Action,
			e.ActorID,
			deref(e.SourceIP),
			deref(e.UserAgent),
			deref(e.OldValues),
			deref(e.NewValues),
		}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("writing export row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(entries), fmt.Errorf("flushing export: %w", err)
	}
	return len(entries), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
