package testsupport

import (
	"context"
	"testing"
	"time"

	"scoreflow/internal/config"
	"scoreflow/internal/session"
	"scoreflow/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSession inserts an UPLOADED session for tests.
func NewSession(t testing.TB, st *store.Store, id, fileName string) *session.Session {
	t.Helper()

	sess := session.New(id, fileName, "uploads/"+id+".pdf", time.Now().UTC())
	if err := st.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return sess
}
