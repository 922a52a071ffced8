package db

import (
	"testing"
)

func TestOpen_SQLitePath(t *testing.T) {
	conn, err := Open("file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %q", DialectName(conn))
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open("   "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestDialectHelpers_SQLite(t *testing.T) {
	conn, err := Open("file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if got := CaseInsensitiveLikeExpr(conn, "email"); got != "LOWER(email) LIKE ?" {
		t.Fatalf("unexpected like expr: %q", got)
	}
	if got := NormalizeLikePattern(conn, "%Foo%"); got != "%foo%" {
		t.Fatalf("unexpected pattern: %q", got)
	}
}

func TestDialectName_NilConnection(t *testing.T) {
	if got := DialectName(nil); got != "" {
		t.Fatalf("expected empty dialect for nil connection, got %q", got)
	}
}
