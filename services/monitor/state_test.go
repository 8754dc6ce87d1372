package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"stock-alerts/models"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, testLog())

	in := models.AlertState{
		"AAPL":   models.DirectionUp,
		"SAP.DE": models.DirectionDown,
	}
	store.Save(in)

	out := store.Load()
	if len(out) != len(in) {
		t.Fatalf("expected %d entries, got %d", len(in), len(out))
	}
	for ticker, dir := range in {
		if out[ticker] != dir {
			t.Errorf("%s: expected %v, got %v", ticker, dir, out[ticker])
		}
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), testLog())
	state := store.Load()
	if state == nil || len(state) != 0 {
		t.Errorf("missing file must load as empty state, got %v", state)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	state := NewFileStore(path, testLog()).Load()
	if len(state) != 0 {
		t.Errorf("corrupt file must load as empty state, got %v", state)
	}
}

func TestFileStore_InvalidDirectionsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	raw := `{"AAPL": "up", "MSFT": "sideways", "SAP.DE": "down"}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	state := NewFileStore(path, testLog()).Load()
	if len(state) != 2 {
		t.Fatalf("expected 2 valid entries, got %d: %v", len(state), state)
	}
	if _, ok := state["MSFT"]; ok {
		t.Error("invalid direction value must be dropped")
	}
}

func TestFileStore_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	NewFileStore(path, testLog()).Save(models.AlertState{"AAPL": models.DirectionUp})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Errorf("expected only state.json after save, got %v", entries)
	}
}
