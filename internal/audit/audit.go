// Package audit maintains the append-only audit trail. Writes are
// best-effort by design: a failed audit write is logged to operational
// output and discarded, and never fails the business mutation it records.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the trail.
const (
	ActionCreate     = "CREATE"
	ActionUpdate     = "UPDATE"
	ActionDelete     = "DELETE"
	ActionSoftDelete = "SOFT_DELETE"
	ActionRestore    = "RESTORE"
)

// Entry is one immutable fact about a state change. CREATE entries have
// nil OldValues; DELETE and SOFT_DELETE entries have nil NewValues.
type Entry struct {
	ID        string
	TableName string
	RecordID  string
	Action    string
	OldValues *string // JSON snapshot, nil when not applicable
	NewValues *string // JSON snapshot, nil when not applicable
	ActorID   string
	SourceIP  *string
	UserAgent *string
	CreatedAt time.Time
}

// RequestContext carries optional caller metadata into an entry.
type RequestContext struct {
	SourceIP  string
	UserAgent string
}

// Filter narrows trail queries. Zero fields match everything; results are
// newest first and capped at Limit (or MaxResults when Limit is 0 or too
// large).
type Filter struct {
	TableName string
	RecordID  string
	ActorID   string
	From      time.Time
	To        time.Time
	Limit     int
}

// MaxResults is the hard cap on rows a single trail query returns.
const MaxResults = 1000

// Store persists and queries entries.
type Store interface {
	InsertAuditLog(e *Entry) error
	QueryAuditLogs(f Filter) ([]*Entry, error)
}

// Logger is the slice of structured logging the recorder needs.
type Logger interface {
	Error(msg string, args ...any)
}

// Clock abstracts time retrieval so entries are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the actual current time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Recorder writes entries synchronously but never propagates a write
// failure to its caller.
type Recorder struct {
	store  Store
	logger Logger
	clock  Clock
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store Store, logger Logger, clock Clock) *Recorder {
	return &Recorder{store: store, logger: logger, clock: clock}
}

// Record appends one entry to the trail. oldValues and newValues are
// serialized as JSON; pass nil where the action has no prior or posterior
// state. Failures are logged and swallowed — the originating business
// operation must not fail or roll back because auditing did.
func (r *Recorder) Record(table, recordID, action string, oldValues, newValues any, actorID string, reqCtx *RequestContext) {
	entry, err := r.buildEntry(table, recordID, action, oldValues, newValues, actorID, reqCtx)
	if err != nil {
		r.logger.Error("audit entry dropped: encoding failed",
			"table", table, "record_id", recordID, "action", action, "error", err)
		return
	}

	if err := r.store.InsertAuditLog(entry); err != nil {
		r.logger.Error("audit entry dropped: write failed",
			"table", table, "record_id", recordID, "action", action, "error", err)
	}
}

func (r *Recorder) buildEntry(table, recordID, action string, oldValues, newValues any, actorID string, reqCtx *RequestContext) (*Entry, error) {
	oldJSON, err := marshalValues(oldValues)
	if err != nil {
		return nil, fmt.Errorf("old values: %w", err)
	}
	newJSON, err := marshalValues(newValues)
	if err != nil {
		return nil, fmt.Errorf("new values: %w", err)
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		TableName: table,
		RecordID:  recordID,
		Action:    action,
		OldValues: oldJSON,
		NewValues: newJSON,
		ActorID:   actorID,
		CreatedAt: r.clock.Now().UTC(),
	}
	if reqCtx != nil {
		if reqCtx.SourceIP != "" {
			ip := reqCtx.SourceIP
			entry.SourceIP = &ip
		}
		if reqCtx.UserAgent != "" {
			ua := reqCtx.UserAgent
			entry.UserAgent = &ua
		}
	}
	return entry, nil
}

// Query returns trail entries matching the filter, newest first.
func (r *Recorder) Query(f Filter) ([]*Entry, error) {
	if f.Limit <= 0 || f.Limit > MaxResults {
		f.Limit = MaxResults
	}
	entries, err := r.store.QueryAuditLogs(f)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail: %w", err)
	}
	return entries, nil
}

func marshalValues(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
