package draft

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Open builds the named backend rooted at dir. The returned close func is
// never nil.
func Open(backend string, dir string) (Store, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case BackendMemory, "":
		return NewInMemoryStore(), noop, nil
	case BackendPebble:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("mkdir: %w", err)
		}
		st, err := NewPebbleStore(filepath.Join(dir, "pebble"))
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	case BackendBadger:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("mkdir: %w", err)
		}
		st, err := NewBadgerStore(filepath.Join(dir, "badger"))
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	case BackendSQLite:
		st, err := OpenSQLiteStore(filepath.Join(dir, "drafts.sqlite"))
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown draft backend %q", backend)
	}
}
