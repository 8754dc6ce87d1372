package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"stock-alerts/models"
)

// FileStore persists the alert state (ticker -> last alerted
// direction) as a JSON file. Both operations fail open: a missing or
// corrupt file loads as an empty state, a failed write is logged and
// dropped. Worst case on state loss is a single duplicate alert on the
// next cycle.
type FileStore struct {
	path string
	log  *zap.SugaredLogger
}

func NewFileStore(path string, log *zap.SugaredLogger) *FileStore {
	return &FileStore{path: path, log: log}
}

// Load reads the persisted state. Entries with values other than
// "up"/"down" are dropped.
func (f *FileStore) Load() models.AlertState {
	state := models.AlertState{}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.log.Warnw("could not read state file", "path", f.path, "err", err)
		}
		return state
	}

	var raw map[string]models.Direction
	if err := json.Unmarshal(data, &raw); err != nil {
		f.log.Warnw("state file is not a valid mapping, resetting", "path", f.path, "err", err)
		return state
	}

	for ticker, dir := range raw {
		if !dir.Valid() {
			f.log.Warnw("dropping invalid state entry", "ticker", ticker, "value", dir)
			continue
		}
		state[ticker] = dir
	}
	return state
}

// Save writes the full state record, replacing the file atomically so
// a crash mid-write never corrupts the previous state.
func (f *FileStore) Save(state models.AlertState) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		f.log.Warnw("could not encode state", "err", err)
		return
	}

	tmp := f.path + ".tmp"
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			f.log.Warnw("could not create state dir", "dir", dir, "err", err)
			return
		}
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		f.log.Warnw("could not write state file", "path", tmp, "err", err)
		return
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.log.Warnw("could not replace state file", "path", f.path, "err", err)
	}
}
