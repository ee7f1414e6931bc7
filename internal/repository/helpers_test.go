package repository

import (
	"testing"
	"time"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-03-15T10:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	return ts
}
