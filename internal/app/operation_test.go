package app

import "testing"

func TestNewOperation(t *testing.T) {
	t.Run("explicit actor", func(t *testing.T) {
		op := NewOperation("backup.create", "clerk-7")

		if op.Name != "backup.create" {
			t.Errorf("Name = %q, want %q", op.Name, "backup.create")
		}
		if op.ActorID != "clerk-7" {
			t.Errorf("ActorID = %q, want %q", op.ActorID, "clerk-7")
		}
	})

	t.Run("defaults actor to OS user", func(t *testing.T) {
		op := NewOperation("restore", "")

		if op.ActorID == "" {
			t.Error("ActorID should never be empty")
		}
	})

	t.Run("request context carries CLI user agent", func(t *testing.T) {
		op := NewOperation("sale.record", "clerk-7")

		if op.ReqCtx == nil {
			t.Skip("hostname unavailable in this environment")
		}
		if op.ReqCtx.UserAgent != "aurum-cli" {
			t.Errorf("UserAgent = %q, want %q", op.ReqCtx.UserAgent, "aurum-cli")
		}
	})
}
