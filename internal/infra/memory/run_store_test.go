package memory

import (
	"testing"

	"practice-engine/internal/app"
)

func TestRunStoreLifecycle(t *testing.T) {
	store := NewRunStore()

	run := app.NewRun("run-1", sampleScenario())
	store.Put(run)
	if got, ok := store.Get("run-1"); !ok || got != run {
		t.Fatalf("expected run present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one live run, got %d", store.Len())
	}

	store.Delete("run-1")
	if _, ok := store.Get("run-1"); ok {
		t.Fatalf("expected run removed")
	}
}
