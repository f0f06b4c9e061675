package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/debug"
	"github.com/vanderheijden86/clusterview/pkg/metrics"
	"github.com/vanderheijden86/clusterview/pkg/query"
)

// maxBodyBytes caps the size of a bundle response.
const maxBodyBytes = 64 << 20

// StatusError is returned when the cluster service answers with a
// non-success status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cluster service returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("cluster service returned %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// HTTPSource fetches bundles from the cluster service.
type HTTPSource struct {
	base *url.URL
	opts Options
}

// NewHTTPSource parses base and returns a source hitting
// <base><ClusterPath>?base1=..&base2=..&target1=..&target2=..
func NewHTTPSource(base string, opts Options) (*HTTPSource, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid source url %q: scheme must be http or https", base)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if opts.Client == nil {
		opts = buildOptions(nil)
	}
	return &HTTPSource{base: u, opts: opts}, nil
}

// URL returns the request URL for key.
func (s *HTTPSource) URL(key query.Key) string {
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + s.opts.ClusterPath
	u.RawQuery = key.Encode()
	return u.String()
}

// Fetch issues exactly one GET for key. There are no retries.
func (s *HTTPSource) Fetch(ctx context.Context, key query.Key) (bundle.Bundle, error) {
	defer metrics.Timer(metrics.BundleFetch)()

	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	target := s.URL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	debug.Log("GET %s", target)
	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return bundle.Bundle{}, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	b, err := bundle.Decode(body)
	if err != nil {
		return bundle.Bundle{}, fmt.Errorf("decode response from %s: %w", s.base.Host, err)
	}
	debug.Logger().Debug("bundle fetched", "source", s.Describe(), "thresholds", b.Len())
	return b, nil
}

// Describe returns the base URL.
func (s *HTTPSource) Describe() string { return s.base.String() }

// Close is a no-op.
func (s *HTTPSource) Close() error { return nil }

func errorMessage(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
