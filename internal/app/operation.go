package app

import (
	"os"
	"os/user"

	"aurum/internal/audit"
)

// Operation identifies one CLI invocation for the audit trail: who ran it
// and from where. The actor defaults to the OS user when none is given.
type Operation struct {
	Name    string
	ActorID string
	ReqCtx  *audit.RequestContext
}

// NewOperation creates an operation record for the named command. actorID
// may be empty, in which case the current OS username is used.
func NewOperation(name, actorID string) *Operation {
	if actorID == "" {
		actorID = currentUsername()
	}

	var reqCtx *audit.RequestContext
	if host, err := os.Hostname(); err == nil {
		reqCtx = &audit.RequestContext{SourceIP: host, UserAgent: "aurum-cli"}
	}

	return &Operation{
		Name:    name,
		ActorID: actorID,
		ReqCtx:  reqCtx,
	}
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
