package matching

import (
	"testing"

	"github.com/mingle/chat-app/internal/user"
)

func TestTakeMatch_QueuesWhenEmpty(t *testing.T) {
	q := NewQueue()

	var queued *Entry
	candidate, matched := q.TakeMatch(male("m1", false), user.MatchFilters{}, func(e *Entry) { queued = e })

	if matched {
		t.Fatal("expected no match on an empty queue")
	}
	if queued == nil || candidate != queued {
		t.Fatal("onQueue should receive the inserted entry")
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want 1", q.Len())
	}
}

func TestTakeMatch_FIFOFairness(t *testing.T) {
	q := NewQueue()

	// Three compatible waiters in insertion order.
	q.TakeMatch(female("f1", false), user.MatchFilters{}, nil)
	q.TakeMatch(female("f2", false), user.MatchFilters{}, nil)
	q.TakeMatch(female("f3", false), user.MatchFilters{}, nil)

	candidate, matched := q.TakeMatch(male("m1", true), user.MatchFilters{}, nil)
	if !matched {
		t.Fatal("expected a match")
	}
	if candidate.User.ID != "f1" {
		t.Errorf("matched %s, want the longest-waiting searcher f1", candidate.User.ID)
	}
	if q.Len() != 2 {
		t.Errorf("queue length = %d, want 2", q.Len())
	}
}

func TestTakeMatch_SkipsIncompatible(t *testing.T) {
	q := NewQueue()

	// f1 waits first but wants a female partner; m1 should match f2 instead.
	q.TakeMatch(female("f1", false), user.MatchFilters{Gender: user.GenderFemale}, nil)
	q.TakeMatch(female("f2", false), user.MatchFilters{}, nil)

	candidate, matched := q.TakeMatch(male("m1", true), user.MatchFilters{}, nil)
	if !matched {
		t.Fatal("expected a match")
	}
	if candidate.User.ID != "f2" {
		t.Errorf("matched %s, want f2", candidate.User.ID)
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want 1 (f1 still waiting)", q.Len())
	}
}

func TestTakeMatch_ReSearchReplacesEntry(t *testing.T) {
	q := NewQueue()

	q.TakeMatch(male("m1", false), user.MatchFilters{Interests: []string{"music"}}, nil)
	q.TakeMatch(male("m1", false), user.MatchFilters{Interests: []string{"gaming"}}, nil)

	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1 (re-search must replace, not duplicate)", q.Len())
	}

	// The live entry carries the newer filters.
	candidate, matched := q.TakeMatch(female("f1", false, "gaming"), user.MatchFilters{}, nil)
	if !matched || candidate.User.ID != "m1" {
		t.Fatalf("expected match with m1's replacement entry, got matched=%v", matched)
	}
}

func TestTakeMatch_SearcherNeverMatchesOwnEntry(t *testing.T) {
	q := NewQueue()

	q.TakeMatch(male("m1", false), user.MatchFilters{}, nil)
	_, matched := q.TakeMatch(male("m1", false), user.MatchFilters{}, nil)
	if matched {
		t.Fatal("a re-search must not match the searcher's own stale entry")
	}
}

func TestRemove(t *testing.T) {
	q := NewQueue()

	q.TakeMatch(male("m1", false), user.MatchFilters{}, nil)

	if !q.Remove("m1") {
		t.Error("Remove should report true for a queued user")
	}
	if q.Len() != 0 {
		t.Errorf("queue length = %d, want 0", q.Len())
	}
	if q.Remove("m1") {
		t.Error("removing an absent user should be a no-op")
	}
}

func TestExpire_StaleEntryIsNoOp(t *testing.T) {
	q := NewQueue()

	var first *Entry
	q.TakeMatch(male("m1", false), user.MatchFilters{}, func(e *Entry) { first = e })

	// Re-search replaces the entry; the old timer's Expire must not remove
	// the replacement.
	q.TakeMatch(male("m1", false), user.MatchFilters{}, nil)

	if q.Expire(first) {
		t.Error("expiring a replaced entry must be a no-op")
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want 1", q.Len())
	}
}

func TestExpire_LiveEntry(t *testing.T) {
	q := NewQueue()

	var e *Entry
	q.TakeMatch(male("m1", false), user.MatchFilters{}, func(entry *Entry) { e = entry })

	if !q.Expire(e) {
		t.Fatal("expiring the live entry should succeed")
	}
	if q.Len() != 0 {
		t.Errorf("queue length = %d, want 0", q.Len())
	}
}
