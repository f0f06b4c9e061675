// Package bundle holds the threshold-indexed set of precomputed cluster
// graphs delivered by a single fetch, and the strict decoder that guards the
// fetch boundary.
//
// A Bundle is either empty (the "no match" sentinel) or contains an entry for
// at least the default threshold. Entries are opaque (graph, options) JSON
// objects owned by the presenter contract; this package never looks inside
// them beyond checking that both are well-formed objects.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/clusterview/pkg/metrics"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

var (
	// ErrInvalidBundle marks a payload that does not match the bundle schema.
	ErrInvalidBundle = errors.New("invalid cluster bundle")
	// ErrMissingThreshold is returned by Lookup when the bundle has no entry
	// for the requested threshold.
	ErrMissingThreshold = errors.New("missing threshold")
)

// Entry is the (graph, renderOptions) pair for one threshold.
type Entry struct {
	Graph   json.RawMessage `json:"graph"`
	Options json.RawMessage `json:"options"`
}

// Bundle maps each of the nine thresholds to an optional Entry.
// The zero value is the empty bundle.
type Bundle struct {
	slots [threshold.Count]*Entry
	n     int
}

// Decode parses a response body into a Bundle.
//
// Empty bodies, "null" and "{}" decode to the empty bundle. Anything else must
// be an object keyed by decimal thresholds whose values are objects with
// object-valued "graph" and "options" members, and must include the default
// threshold. Violations wrap ErrInvalidBundle.
func Decode(data []byte) (Bundle, error) {
	defer metrics.Timer(metrics.BundleDecode)()

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Bundle{}, nil
	}
	if trimmed[0] != '{' {
		return Bundle{}, fmt.Errorf("%w: top level is not an object", ErrInvalidBundle)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	entries := make(map[string]Entry, len(raw))
	for key, value := range raw {
		entry, err := decodeEntry(value)
		if err != nil {
			return Bundle{}, fmt.Errorf("%w: threshold %q: %v", ErrInvalidBundle, key, err)
		}
		entries[key] = entry
	}
	return FromEntries(entries)
}

// FromEntries builds a Bundle from entries keyed by decimal threshold text.
// It applies the same rules as Decode.
func FromEntries(entries map[string]Entry) (Bundle, error) {
	var b Bundle
	if len(entries) == 0 {
		return b, nil
	}

	// Sorted for deterministic duplicate reporting.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		t, err := threshold.Parse(key)
		if err != nil {
			return Bundle{}, fmt.Errorf("%w: key %q: %v", ErrInvalidBundle, key, err)
		}
		entry := entries[key]
		if !isObject(entry.Graph) {
			return Bundle{}, fmt.Errorf("%w: threshold %s: graph is not an object", ErrInvalidBundle, t)
		}
		if !isObject(entry.Options) {
			return Bundle{}, fmt.Errorf("%w: threshold %s: options is not an object", ErrInvalidBundle, t)
		}
		if b.slots[t.Index()] != nil {
			return Bundle{}, fmt.Errorf("%w: duplicate threshold %s", ErrInvalidBundle, t)
		}
		e := entry
		b.slots[t.Index()] = &e
		b.n++
	}

	if b.slots[threshold.Default.Index()] == nil {
		return Bundle{}, fmt.Errorf("%w: default threshold %s missing", ErrInvalidBundle, threshold.Default)
	}
	return b, nil
}

func decodeEntry(value json.RawMessage) (Entry, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Entry{}, errors.New("entry is not an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Entry{}, err
	}
	graph, ok := fields["graph"]
	if !ok {
		return Entry{}, errors.New("missing graph")
	}
	options, ok := fields["options"]
	if !ok {
		return Entry{}, errors.New("missing options")
	}
	return Entry{Graph: graph, Options: options}, nil
}

// isObject reports whether raw is a well-formed JSON object. Entries built
// by FromEntries never went through Unmarshal, so syntax is checked here.
func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) >= 2 && trimmed[0] == '{' && json.Valid(trimmed)
}

// Empty reports whether the bundle is the no-match sentinel.
func (b Bundle) Empty() bool {
	return b.n == 0
}

// Len returns the number of thresholds present.
func (b Bundle) Len() int {
	return b.n
}

// Has reports whether t has an entry.
func (b Bundle) Has(t threshold.Threshold) bool {
	return t.Valid() && b.slots[t.Index()] != nil
}

// Lookup returns the entry for t, or ErrMissingThreshold.
func (b Bundle) Lookup(t threshold.Threshold) (Entry, error) {
	if !b.Has(t) {
		return Entry{}, fmt.Errorf("%w: %s", ErrMissingThreshold, t)
	}
	return *b.slots[t.Index()], nil
}

// Thresholds lists the present thresholds in ascending order.
func (b Bundle) Thresholds() []threshold.Threshold {
	out := make([]threshold.Threshold, 0, b.n)
	for _, t := range threshold.All() {
		if b.slots[t.Index()] != nil {
			out = append(out, t)
		}
	}
	return out
}

// Complete reports whether all nine thresholds are present.
func (b Bundle) Complete() bool {
	return b.n == threshold.Count
}
