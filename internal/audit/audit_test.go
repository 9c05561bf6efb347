package audit

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	entries   []*Entry
	insertErr error
	lastQuery Filter
}

func (s *fakeStore) InsertAuditLog(e *Entry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeStore) QueryAuditLogs(f Filter) ([]*Entry, error) {
	s.lastQuery = f
	return s.entries, nil
}

type fakeLogger struct {
	errorCalls int
}

func (l *fakeLogger) Error(string, ...any) { l.errorCalls++ }

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

var testTime = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestRecorder() (*Recorder, *fakeStore, *fakeLogger) {
	st := &fakeStore{}
	lg := &fakeLogger{}
	return NewRecorder(st, lg, fixedClock{now: testTime}), st, lg
}

func TestRecord(t *testing.T) {
	r, st, lg := newTestRecorder()

	type snapshot struct {
		Name  string `json:"name"`
		Stock int64  `json:"stock"`
	}
	r.Record("products", "p1", ActionUpdate,
		snapshot{Name: "ring", Stock: 5},
		snapshot{Name: "ring", Stock: 3},
		"alice",
		&RequestContext{SourceIP: "10.0.0.1", UserAgent: "pos-terminal"})

	if lg.errorCalls != 0 {
		t.Errorf("logger errors = %d, want 0", lg.errorCalls)
	}
	if len(st.entries) != 1 {
		t.Fatalf("stored entries = %d, want 1", len(st.entries))
	}

	e := st.entries[0]
	if e.ID == "" {
		t.Error("entry ID is empty")
	}
	if e.TableName != "products" || e.RecordID != "p1" || e.Action != ActionUpdate || e.ActorID != "alice" {
		t.Errorf("entry identity = %+v", e)
	}
	if e.OldValues == nil || !strings.Contains(*e.OldValues, `"stock":5`) {
		t.Errorf("OldValues = %v, want JSON with stock 5", e.OldValues)
	}
	if e.NewValues == nil || !strings.Contains(*e.NewValues, `"stock":3`) {
		t.Errorf("NewValues = %v, want JSON with stock 3", e.NewValues)
	}
	if e.SourceIP == nil || *e.SourceIP != "10.0.0.1" {
		t.Errorf("SourceIP = %v, want 10.0.0.1", e.SourceIP)
	}
	if e.UserAgent == nil || *e.UserAgent != "pos-terminal" {
		t.Errorf("UserAgent = %v, want pos-terminal", e.UserAgent)
	}
	if !e.CreatedAt.Equal(testTime) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, testTime)
	}
}

func TestRecord_NilValuesStayNil(t *testing.T) {
	r, st, _ := newTestRecorder()

	r.Record("sales", "s1", ActionSoftDelete, map[string]int{"total": 100}, nil, "bob", nil)

	e := st.entries[0]
	if e.OldValues == nil {
		t.Error("OldValues = nil, want JSON snapshot")
	}
	if e.NewValues != nil {
		t.Errorf("NewValues = %v, want nil", *e.NewValues)
	}
	if e.SourceIP != nil || e.UserAgent != nil {
		t.Error("request metadata should be nil without a request context")
	}
}

func TestRecord_WriteFailureIsSwallowed(t *testing.T) {
	st := &fakeStore{insertErr: errors.New("disk full")}
	lg := &fakeLogger{}
	r := NewRecorder(st, lg, fixedClock{now: testTime})

	// Must not panic or surface the error in any way.
	r.Record("products", "p1", ActionCreate, nil, map[string]string{"name": "ring"}, "alice", nil)

	if lg.errorCalls != 1 {
		t.Errorf("logger errors = %d, want 1", lg.errorCalls)
	}
	if len(st.entries) != 0 {
		t.Errorf("stored entries = %d, want 0", len(st.entries))
	}
}

func TestRecord_EncodingFailureIsSwallowed(t *testing.T) {
	r, st, lg := newTestRecorder()

	// Channels cannot be marshaled to JSON.
	r.Record("products", "p1", ActionCreate, nil, make(chan int), "alice", nil)

	if lg.errorCalls != 1 {
		t.Errorf("logger errors = %d, want 1", lg.errorCalls)
	}
	if len(st.entries) != 0 {
		t.Errorf("stored entries = %d, want 0", len(st.entries))
	}
}

func TestQuery_LimitClamping(t *testing.T) {
	r, st, _ := newTestRecorder()

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero becomes max", limit: 0, want: MaxResults},
		{name: "negative becomes max", limit: -5, want: MaxResults},
		{name: "over cap becomes max", limit: MaxResults + 1, want: MaxResults},
		{name: "in range passes through", limit: 25, want: 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Query(Filter{Limit: tt.limit}); err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if st.lastQuery.Limit != tt.want {
				t.Errorf("store saw Limit = %d, want %d", st.lastQuery.Limit, tt.want)
			}
		})
	}
}

func TestExport(t *testing.T) {
	r, st, _ := newTestRecorder()

	old := `{"stock":5}`
	st.entries = []*Entry{
		{
			ID:        "e1",
			TableName: "products",
			RecordID:  "p1",
			Action:    ActionUpdate,
			OldValues: &old,
			ActorID:   "alice",
			CreatedAt: testTime,
		},
		{
			ID:        "e2",
			TableName: "sales",
			RecordID:  "s1",
			Action:    ActionCreate,
			ActorID:   "bob",
			CreatedAt: testTime.Add(time.Minute),
		},
	}

	var buf bytes.Buffer
	n, err := r.Export(&buf, Filter{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Export() = %d rows, want 2", n)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("export has %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "created_at\ttable_name") {
		t.Errorf("header = %q", lines[0])
	}

	first := strings.Split(lines[1], "\t")
	if first[0] != testTime.Format(time.RFC3339) {
		t.Errorf("timestamp = %q, want RFC3339 %q", first[0], testTime.Format(time.RFC3339))
	}
	if first[1] != "products" || first[3] != ActionUpdate || first[4] != "alice" {
		t.Errorf("row = %v", first)
	}
	if !strings.Contains(lines[1], old) {
		t.Errorf("row %q missing old values", lines[1])
	}
}

func TestExport_EmptyTrail(t *testing.T) {
	r, _, _ := newTestRecorder()

	var buf bytes.Buffer
	n, err := r.Export(&buf, Filter{})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Export() = %d rows, want 0", n)
	}
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("export has %d lines, want just the header", got)
	}
}
