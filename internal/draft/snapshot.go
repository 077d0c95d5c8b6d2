package draft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const manifestFile = "manifest.latest.json"

// Manifest points at the most recent export in a snapshot directory.
type Manifest struct {
	SnapshotID           string `json:"snapshotId"`
	Entries              int    `json:"entries"`
	CreatedAtEpochSecond int64  `json:"createdAt"`
}

// NowUTC is split out for tests.
var NowUTC = func() time.Time { return time.Now().UTC() }

// Export writes every entry of st into baseDir/<snapshotID>/drafts.json and
// publishes the manifest. An empty snapshotID is derived from the clock.
func Export(st Store, baseDir string, snapshotID string) (Manifest, error) {
	now := NowUTC()
	if snapshotID == "" {
		snapshotID = now.Format("20060102T150405Z")
	}
	if err := checkSnapshotID(snapshotID); err != nil {
		return Manifest{}, err
	}
	dump := make(map[string]json.RawMessage)
	if err := st.Range(func(key string, value []byte) error {
		if !json.Valid(value) {
			return fmt.Errorf("entry %s is not json", key)
		}
		dump[key] = json.RawMessage(value)
		return nil
	}); err != nil {
		return Manifest{}, err
	}

	if err := os.MkdirAll(filepath.Join(baseDir, snapshotID), 0o755); err != nil {
		return Manifest{}, fmt.Errorf("mkdir: %w", err)
	}
	if err := writeJSON(filepath.Join(baseDir, snapshotID, "drafts.json"), dump); err != nil {
		return Manifest{}, err
	}
	m := Manifest{SnapshotID: snapshotID, Entries: len(dump), CreatedAtEpochSecond: now.Unix()}
	if err := writeJSON(filepath.Join(baseDir, manifestFile), m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// ReadManifest returns the latest manifest in baseDir.
func ReadManifest(baseDir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, manifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

// Import loads a snapshot into st, overwriting keys it carries and leaving
// other keys alone. An empty snapshotID resolves through the manifest.
func Import(st Store, baseDir string, snapshotID string) (int, error) {
	if snapshotID == "" {
		m, err := ReadManifest(baseDir)
		if err != nil {
			return 0, err
		}
		snapshotID = m.SnapshotID
	}
	if err := checkSnapshotID(snapshotID); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(filepath.Join(baseDir, snapshotID, "drafts.json"))
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	var dump map[string]json.RawMessage
	if err := json.Unmarshal(data, &dump); err != nil {
		return 0, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	for k, v := range dump {
		if err := st.Set(k, v); err != nil {
			return 0, fmt.Errorf("restore %s: %w", k, err)
		}
	}
	return len(dump), nil
}

// checkSnapshotID keeps a snapshot inside its base directory.
func checkSnapshotID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid snapshot id %q", id)
	}
	return nil
}

func writeJSON(path string, v any) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer out.Close()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
