// Package cluster reads the graph and options documents carried by a bundle
// entry. Both documents are produced upstream for a network renderer; this
// package only picks out what the terminal presenters need and ignores the
// rest.
package cluster

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// ErrInvalidGraph is returned when a graph document cannot be read.
var ErrInvalidGraph = errors.New("invalid graph")

// Ident is a node id or group name. Upstream emits both strings and numbers.
type Ident string

// UnmarshalJSON accepts a JSON string, number, or null.
func (id *Ident) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Ident(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a string or number, got %s", data)
		}
		*id = Ident(n.String())
		return nil
	}
}

// Node is one member of a cluster.
type Node struct {
	ID    Ident  `json:"id"`
	Label string `json:"label"`
	Group Ident  `json:"group"`
	Title string `json:"title"`
}

// Name is the label, falling back to the id.
func (n Node) Name() string {
	if n.Label != "" {
		return n.Label
	}
	return string(n.ID)
}

// Edge connects two nodes.
type Edge struct {
	From  Ident   `json:"from"`
	To    Ident   `json:"to"`
	Label string  `json:"label"`
	Value float64 `json:"-"`
}

// UnmarshalJSON reads value tolerantly: upstream writes it as a number or a
// numeric string.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var raw struct {
		From  Ident           `json:"from"`
		To    Ident           `json:"to"`
		Label json.RawMessage `json:"label"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.From, e.To = raw.From, raw.To
	e.Label = scalarText(raw.Label)
	e.Value = 0
	if v := scalarText(raw.Value); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("edge %s-%s: value %q: %w", e.From, e.To, v, err)
		}
		e.Value = f
	}
	return nil
}

// Graph is the network document of one threshold.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Parse reads a graph document. Missing nodes or edges are treated as empty.
func Parse(raw []byte) (Graph, error) {
	var g Graph
	if len(bytes.TrimSpace(raw)) == 0 {
		return g, nil
	}
	if err := json.Unmarshal(raw, &g); err != nil {
		return Graph{}, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	return g, nil
}

// Options summarises the renderer options that affect how a graph reads.
type Options struct {
	Hierarchical bool
	Direction    string
	Physics      bool
}

// ParseOptions extracts layout.hierarchical and physics.enabled. Unknown
// fields are ignored; an unreadable document yields the zero Options.
func ParseOptions(raw []byte) Options {
	var doc struct {
		Layout struct {
			Hierarchical json.RawMessage `json:"hierarchical"`
		} `json:"layout"`
		Physics json.RawMessage `json:"physics"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Options{}
	}

	var opts Options
	h := bytes.TrimSpace(doc.Layout.Hierarchical)
	switch {
	case bytes.Equal(h, []byte("true")):
		opts.Hierarchical = true
	case len(h) > 0 && h[0] == '{':
		var hv struct {
			Enabled   *bool  `json:"enabled"`
			Direction string `json:"direction"`
		}
		if json.Unmarshal(h, &hv) == nil {
			opts.Hierarchical = hv.Enabled == nil || *hv.Enabled
			opts.Direction = hv.Direction
		}
	}

	p := bytes.TrimSpace(doc.Physics)
	switch {
	case len(p) == 0:
		opts.Physics = true
	case bytes.Equal(p, []byte("true")):
		opts.Physics = true
	case p[0] == '{':
		var pv struct {
			Enabled *bool `json:"enabled"`
		}
		if json.Unmarshal(p, &pv) == nil {
			opts.Physics = pv.Enabled == nil || *pv.Enabled
		}
	}
	return opts
}

func (o Options) String() string {
	layout := "free"
	if o.Hierarchical {
		layout = "hierarchical"
		if o.Direction != "" {
			layout += " " + o.Direction
		}
	}
	physics := "off"
	if o.Physics {
		physics = "on"
	}
	return "layout " + layout + ", physics " + physics
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(raw)
}
