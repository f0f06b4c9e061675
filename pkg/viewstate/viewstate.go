// Package viewstate is the state machine behind the cluster view.
//
// A State is a value. Every transition is a pure method that returns the next
// State, so the whole protocol can be exercised without a terminal:
//
//	Loading --FetchSettled(non-empty)--> Ready(0.8)
//	Loading --FetchSettled(empty|error)--> NoMatch
//	Ready(t) --ThresholdChanged(t')--> Ready(t')
//	any --Navigated(key)--> Loading
//
// Each navigation bumps Generation. A fetch result is applied only when it
// carries the current generation and key, so a late response for a
// superseded key can never overwrite the state of the newer one.
package viewstate

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// Phase is the top-level display mode.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseNoMatch
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "Loading"
	case PhaseNoMatch:
		return "NoMatch"
	case PhaseReady:
		return "Ready"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

var (
	// ErrEmptyResult means the fetch succeeded but held no thresholds.
	ErrEmptyResult = errors.New("no match found")
	// ErrTransportFailure wraps fetch failures and non-success statuses.
	ErrTransportFailure = errors.New("transport failure")
	// ErrNotReady is returned when a threshold is selected outside Ready.
	ErrNotReady = errors.New("view is not ready")
)

// State is one snapshot of the view.
type State struct {
	Phase      Phase
	Key        query.Key
	Generation uint64
	Selection  threshold.Threshold

	// Bundle is populated only in PhaseReady.
	Bundle bundle.Bundle

	// Reason explains NoMatch. Warning holds the last rejected selection.
	Reason  error
	Warning error
}

// FetchRequest is the single fetch a navigation asks for.
type FetchRequest struct {
	Generation uint64
	Key        query.Key
}

// FetchResult is what a fetch settled with.
type FetchResult struct {
	Generation uint64
	Key        query.Key
	Bundle     bundle.Bundle
	Err        error
}

// New returns the initial Loading state for key together with its fetch.
func New(key query.Key) (State, FetchRequest) {
	return State{}.Navigate(key)
}

// Navigate establishes a new QueryKey. The bundle is invalidated and the
// phase resets to Loading regardless of the current phase.
func (s State) Navigate(key query.Key) (State, FetchRequest) {
	next := State{
		Phase:      PhaseLoading,
		Key:        key,
		Generation: s.Generation + 1,
		Selection:  threshold.Default,
	}
	return next, FetchRequest{Generation: next.Generation, Key: key}
}

// Current reports whether r belongs to the outstanding fetch.
func (s State) Current(r FetchResult) bool {
	return s.Phase == PhaseLoading && r.Generation == s.Generation && r.Key == s.Key
}

// Settle applies a fetch result. Results for another generation or key, or
// arriving after the fetch already settled, are discarded and reported with
// applied=false.
func (s State) Settle(r FetchResult) (next State, applied bool) {
	if !s.Current(r) {
		return s, false
	}

	next = s
	next.Warning = nil
	switch {
	case r.Err != nil:
		next.Phase = PhaseNoMatch
		next.Bundle = bundle.Bundle{}
		if errors.Is(r.Err, bundle.ErrInvalidBundle) {
			next.Reason = r.Err
		} else {
			next.Reason = fmt.Errorf("%w: %w", ErrTransportFailure, r.Err)
		}
	case r.Bundle.Empty():
		next.Phase = PhaseNoMatch
		next.Bundle = bundle.Bundle{}
		next.Reason = ErrEmptyResult
	case !r.Bundle.Has(threshold.Default):
		// Decoders reject this already; guard sources that build bundles by hand.
		next.Phase = PhaseNoMatch
		next.Bundle = bundle.Bundle{}
		next.Reason = fmt.Errorf("%w: default threshold %s missing", bundle.ErrInvalidBundle, threshold.Default)
	default:
		next.Phase = PhaseReady
		next.Bundle = r.Bundle
		next.Selection = threshold.Default
		next.Reason = nil
	}
	return next, true
}

// Select moves the selection to t. It never changes the phase. If the bundle
// has no entry for t the previous selection is kept and the error is
// returned and recorded as Warning.
func (s State) Select(t threshold.Threshold) (State, error) {
	if s.Phase != PhaseReady {
		return s, ErrNotReady
	}
	if _, err := s.Bundle.Lookup(t); err != nil {
		s.Warning = err
		return s, err
	}
	s.Selection = t
	s.Warning = nil
	return s, nil
}

// Active returns the (graph, options) pair to display. ok is false outside
// PhaseReady.
func (s State) Active() (bundle.Entry, bool) {
	if s.Phase != PhaseReady {
		return bundle.Entry{}, false
	}
	e, err := s.Bundle.Lookup(s.Selection)
	if err != nil {
		return bundle.Entry{}, false
	}
	return e, true
}
