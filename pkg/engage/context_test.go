package engage

import (
	"testing"
	"time"
)

func TestContextStoreGetOrCreate(t *testing.T) {
	store := NewContextStore()
	defer store.Close()

	ctx := store.GetOrCreate("s1")
	if ctx.Trust != 0.5 {
		t.Errorf("new context trust = %v, want 0.5", ctx.Trust)
	}
	if again := store.GetOrCreate("s1"); again != ctx {
		t.Error("GetOrCreate returned a different context for the same session")
	}
	if store.Get("missing") != nil {
		t.Error("Get returned a context for an unknown session")
	}
}

func TestContextStoreSweepsIdle(t *testing.T) {
	store := NewContextStore(
		WithIdleWindow(10*time.Millisecond),
		WithSweepInterval(5*time.Millisecond),
	)
	defer store.Close()

	store.GetOrCreate("stale")
	store.GetOrCreate("active")

	deadline := time.Now().Add(time.Second)
	for store.Get("stale") != nil && time.Now().Before(deadline) {
		store.Touch("active")
		time.Sleep(5 * time.Millisecond)
	}
	if store.Get("stale") != nil {
		t.Error("idle context survived the sweep")
	}
	if store.Get("active") == nil {
		t.Error("touched context was swept")
	}
}

func TestAddTacticDeduplicates(t *testing.T) {
	ctx := &Context{}
	ctx.AddTactic("banking-fraud")
	ctx.AddTactic("banking-fraud")
	ctx.AddTactic("phishing")
	if len(ctx.Tactics) != 2 {
		t.Errorf("tactics = %v, want two distinct entries", ctx.Tactics)
	}
}
