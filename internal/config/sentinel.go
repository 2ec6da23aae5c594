package config

import (
	"os"
	"path/filepath"

	"github.com/libgrip/libgrip/internal/log"
)

var sentinelLog = log.New("config.sentinel")

// Sentinel breaks a crash loop caused by a bad configuration: a sentinel
// file is written immediately before a load attempt and removed right
// after that attempt succeeds. If the daemon crashes mid-load, the file
// is left behind; the next *initial* automatic load (not a manual
// autoreload) finds it and skips loading entirely, installing an empty
// Model instead of retrying the configuration that just crashed it.
//
// This is independent of the daemon's own pid-file check, which guards
// the whole process rather than one load; Sentinel guards
// specifically against a configuration document that crashes the load
// path itself.
type Sentinel struct {
	path string
}

func NewSentinel(stateDir string) *Sentinel {
	return &Sentinel{path: filepath.Join(stateDir, "config.loading")}
}

// Armed reports whether the sentinel file is present, i.e. the previous
// load attempt never completed.
func (s *Sentinel) Armed() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Arm writes the sentinel file, marking a load attempt as in progress.
func (s *Sentinel) Arm() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte{}, 0o644)
}

// Disarm removes the sentinel file after a load attempt succeeds.
func (s *Sentinel) Disarm() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Load guards a single configuration load attempt with the sentinel.
// initial distinguishes the daemon's startup load (where a still-armed
// sentinel skips loading and installs cfg.empty()) from a later autoreload
// or manual reload triggered over IPC, which always attempts the load
// regardless of the sentinel's state, since by then the daemon is known
// to be running fine.
func Load(stateDir string, initial bool, data []byte, col Collaborators) (*Model, *MultiError) {
	s := NewSentinel(stateDir)

	if initial && s.Armed() {
		sentinelLog.Warnf("sentinel present at startup, skipping configuration load: %s", s.path)
		return Empty(), nil
	}

	if err := s.Arm(); err != nil {
		sentinelLog.Warnf("failed to arm configuration sentinel: %v", err)
	}

	model, errs := Decode(data, col)
	if errs != nil && errs.HasErrors() {
		// Leave the sentinel armed: the document that just failed to
		// decode is presumably the same one that would crash a retry.
		// The partial model is not handed out for installation.
		return nil, errs
	}

	if err := s.Disarm(); err != nil {
		sentinelLog.Warnf("failed to disarm configuration sentinel: %v", err)
	}
	return model, errs
}

// Empty is the fallback Model installed when a load is skipped or fails:
// no device rules, no gestures, nothing grabbed.
func Empty() *Model {
	return &Model{Handlers: make(map[string]HandlerConfig)}
}
