package report

import (
	"context"
	"testing"
)

func TestValidReason(t *testing.T) {
	for _, reason := range []string{"harassment", "spam", "explicit", "other"} {
		if !ValidReason(reason) {
			t.Errorf("ValidReason(%q) = false, want true", reason)
		}
	}
	for _, reason := range []string{"", "rude", "HARASSMENT", "abuse"} {
		if ValidReason(reason) {
			t.Errorf("ValidReason(%q) = true, want false", reason)
		}
	}
}

func TestCreate_InvalidReason(t *testing.T) {
	var store *Store

	err := store.Create(context.Background(), &Report{
		ReporterID: "a",
		ReportedID: "b",
		ChatID:     "c1",
		Reason:     "not-a-reason",
	})
	if err == nil {
		t.Error("expected an error for an invalid reason")
	}
}

func TestNilStore_Degrades(t *testing.T) {
	var store *Store
	ctx := context.Background()

	if err := store.Create(ctx, &Report{Reason: "spam"}); err != nil {
		t.Errorf("nil store Create should be a no-op, got %v", err)
	}
	count, err := store.CountRecent(ctx, "anyone", 0)
	if err != nil || count != 0 {
		t.Errorf("nil store CountRecent = %d, %v; want 0, nil", count, err)
	}
}
