package viewstate

import (
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

// Event is one of the external inputs of the view.
type Event interface {
	event()
}

// Navigated is a location change.
type Navigated struct {
	Key query.Key
}

// FetchSettled is a fetch completion.
type FetchSettled struct {
	Result FetchResult
}

// ThresholdChanged is a threshold control change.
type ThresholdChanged struct {
	Value threshold.Threshold
}

func (Navigated) event()        {}
func (FetchSettled) event()     {}
func (ThresholdChanged) event() {}

// Effect is the side effect a transition asks the caller to perform.
type Effect struct {
	// Fetch is non-nil when a new fetch must be issued. Any previous
	// in-flight fetch may be cancelled.
	Fetch *FetchRequest
	// Discarded is true when a fetch result was stale and ignored.
	Discarded bool
	// Err carries a rejected threshold selection.
	Err error
}

// Transition folds a single event into s.
func Transition(s State, ev Event) (State, Effect) {
	switch ev := ev.(type) {
	case Navigated:
		next, req := s.Navigate(ev.Key)
		return next, Effect{Fetch: &req}
	case FetchSettled:
		next, applied := s.Settle(ev.Result)
		return next, Effect{Discarded: !applied}
	case ThresholdChanged:
		next, err := s.Select(ev.Value)
		return next, Effect{Err: err}
	default:
		return s, Effect{}
	}
}
