// Package query extracts the four identifying parameters of a cluster
// comparison from a navigational location.
package query

import (
	"net/url"
	"strings"
)

// Parameter names used in locations and outbound requests.
const (
	ParamBase1   = "base1"
	ParamBase2   = "base2"
	ParamTarget1 = "target1"
	ParamTarget2 = "target2"
)

// Key identifies which cluster comparison is being viewed. It is a plain
// value: two keys are the same comparison exactly when they are ==.
type Key struct {
	Base1   string
	Base2   string
	Target1 string
	Target2 string
}

// FromValues reads the four fields by name. Missing fields are left empty;
// no validation of entity names is performed.
func FromValues(v url.Values) Key {
	return Key{
		Base1:   v.Get(ParamBase1),
		Base2:   v.Get(ParamBase2),
		Target1: v.Get(ParamTarget1),
		Target2: v.Get(ParamTarget2),
	}
}

// Parse extracts a Key from a location. It accepts a full URL
// ("http://host/cluster?base1=a"), a path with a query ("/cluster?base1=a"),
// a leading "?" query, or a bare query string. Malformed pairs are skipped.
func Parse(location string) Key {
	location = strings.TrimSpace(location)
	if i := strings.IndexByte(location, '?'); i >= 0 {
		location = location[i+1:]
	}
	if i := strings.IndexByte(location, '#'); i >= 0 {
		location = location[:i]
	}
	values, _ := url.ParseQuery(location)
	return FromValues(values)
}

// Values encodes the four fields verbatim as query parameters.
func (k Key) Values() url.Values {
	v := url.Values{}
	v.Set(ParamBase1, k.Base1)
	v.Set(ParamBase2, k.Base2)
	v.Set(ParamTarget1, k.Target1)
	v.Set(ParamTarget2, k.Target2)
	return v
}

// Encode renders the key as a query string (without the leading "?").
func (k Key) Encode() string {
	return k.Values().Encode()
}

// IsZero reports whether all four fields are empty.
func (k Key) IsZero() bool {
	return k == Key{}
}

// BaseLabel renders the base pair, e.g. "Acme .* Corp".
func (k Key) BaseLabel() string {
	return k.Base1 + " .* " + k.Base2
}

// TargetLabel renders the target pair, e.g. "Acme .* Inc".
func (k Key) TargetLabel() string {
	return k.Target1 + " .* " + k.Target2
}

// Title renders the comparison heading, e.g. "Acme .* Corp ~ Acme .* Inc".
func (k Key) Title() string {
	return k.BaseLabel() + " ~ " + k.TargetLabel()
}

// String implements fmt.Stringer for logs.
func (k Key) String() string {
	return k.Title()
}
