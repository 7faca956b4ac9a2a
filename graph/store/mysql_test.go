package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// MySQL tests need a reachable server:
//
//	MASF_MYSQL_DSN="user:pass@tcp(localhost:3306)/masf_test" go test ./graph/store
func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("MASF_MYSQL_DSN")
	if dsn == "" {
		t.Skip("MASF_MYSQL_DSN not set")
	}
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewMySQLStore(dsn)
		if err != nil {
			t.Fatalf("NewMySQLStore: %v", err)
		}
		// Each subtest writes its own run IDs, so isolate them by table contents.
		if _, err := s.db.ExecContext(context.Background(), "DELETE FROM masf_steps"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMySQLStore_BadDSN(t *testing.T) {
	if testing.Short() {
		t.Skip("dials the network")
	}
	dsn := fmt.Sprintf("nobody:nothing@tcp(127.0.0.1:1)/none?timeout=%s", 200*time.Millisecond)
	if _, err := NewMySQLStore(dsn); err == nil {
		t.Error("expected connection error")
	}
}
