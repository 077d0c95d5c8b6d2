// Package draft persists in-progress sourcing decisions per request so an
// interrupted treatment can be resumed.
package draft

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"spm/internal/model"
)

// DefaultPrefix namespaces draft keys inside a shared store.
const DefaultPrefix = "spm:tratamiento:"

// Drafts stores one decisions map per request id on top of a Store.
type Drafts struct {
	store  Store
	prefix string
}

func NewDrafts(st Store, prefix string) *Drafts {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Drafts{store: st, prefix: prefix}
}

// Key returns the store key for a request id.
func (d *Drafts) Key(requestID int64) string {
	return d.prefix + strconv.FormatInt(requestID, 10)
}

// Load returns the saved decisions for the request, if any.
func (d *Drafts) Load(requestID int64) (model.Decisions, bool, error) {
	raw, ok, err := d.store.Get(d.Key(requestID))
	if err != nil {
		return nil, false, fmt.Errorf("read draft %d: %w", requestID, err)
	}
	if !ok {
		return nil, false, nil
	}
	dec, err := decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode draft %d: %w", requestID, err)
	}
	return dec, true, nil
}

// Save overwrites the draft for the request with decisions.
func (d *Drafts) Save(requestID int64, decisions model.Decisions) error {
	raw, err := json.Marshal(decisions)
	if err != nil {
		return fmt.Errorf("encode draft %d: %w", requestID, err)
	}
	if err := d.store.Set(d.Key(requestID), raw); err != nil {
		return fmt.Errorf("write draft %d: %w", requestID, err)
	}
	return nil
}

// Clear removes the draft for the request.
func (d *Drafts) Clear(requestID int64) error {
	if err := d.store.Delete(d.Key(requestID)); err != nil {
		return fmt.Errorf("clear draft %d: %w", requestID, err)
	}
	return nil
}

// Summary describes a stored draft without its options.
type Summary struct {
	RequestID int64
	Key       string
	Decided   []int
}

// List returns every draft under this prefix, ordered by key.
// Entries under the prefix whose suffix is not a request id are skipped.
func (d *Drafts) List() ([]Summary, error) {
	var out []Summary
	err := d.store.Range(func(key string, value []byte) error {
		if !strings.HasPrefix(key, d.prefix) {
			return nil
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, d.prefix), 10, 64)
		if err != nil {
			return nil
		}
		dec, err := decode(value)
		if err != nil {
			return fmt.Errorf("decode draft %s: %w", key, err)
		}
		out = append(out, Summary{RequestID: id, Key: key, Decided: dec.Indices()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decode(raw []byte) (model.Decisions, error) {
	dec := make(model.Decisions)
	if err := json.Unmarshal(raw, &dec); err != nil {
		return nil, err
	}
	return dec, nil
}
