// Package datasource fetches cluster bundles for a query key. A source is
// either the cluster HTTP service, a bundle JSON file (or a directory of
// them), or a SQLite database filled by the upstream clustering job.
package datasource

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/query"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeHTTP is the cluster service (GET <base>/cluster?...)
	SourceTypeHTTP SourceType = "http"
	// SourceTypeFile is a bundle JSON file or a directory of them
	SourceTypeFile SourceType = "file"
	// SourceTypeSQLite is a SQLite database with a cluster_bundles table
	SourceTypeSQLite SourceType = "sqlite"
)

// DefaultClusterPath is the endpoint the cluster service answers on.
const DefaultClusterPath = "/cluster"

// DefaultTimeout bounds a single fetch when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Source produces the bundle for a query key. Fetch is called once per key
// establishment and must honour ctx cancellation. An empty bundle with a nil
// error means "no match".
type Source interface {
	Fetch(ctx context.Context, key query.Key) (bundle.Bundle, error)
	// Describe names the source for status lines and logs.
	Describe() string
	Close() error
}

// Watchable is implemented by sources backed by a local path that can be
// watched for changes.
type Watchable interface {
	WatchPath() string
}

// Options configures Open.
type Options struct {
	// Timeout bounds each fetch. Zero means DefaultTimeout, negative disables it.
	Timeout time.Duration
	// Client is the HTTP client for SourceTypeHTTP.
	Client *http.Client
	// ClusterPath overrides DefaultClusterPath.
	ClusterPath string
}

// Option mutates Options.
type Option func(*Options)

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) { o.Client = c }
}

// WithClusterPath sets the endpoint path of the cluster service.
func WithClusterPath(p string) Option {
	return func(o *Options) { o.ClusterPath = p }
}

func buildOptions(opts []Option) Options {
	o := Options{Timeout: DefaultTimeout, ClusterPath: DefaultClusterPath}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ClusterPath == "" {
		o.ClusterPath = DefaultClusterPath
	}
	if !strings.HasPrefix(o.ClusterPath, "/") {
		o.ClusterPath = "/" + o.ClusterPath
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	return o
}

// withTimeout derives the per-fetch context.
func (o Options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// DetectType infers the source type from a location.
func DetectType(location string) SourceType {
	lower := strings.ToLower(strings.TrimSpace(location))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return SourceTypeHTTP
	}
	switch filepath.Ext(lower) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite
	}
	return SourceTypeFile
}

// Open returns the Source for location.
func Open(location string, opts ...Option) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("no source location configured")
	}
	o := buildOptions(opts)
	switch DetectType(location) {
	case SourceTypeHTTP:
		return NewHTTPSource(location, o)
	case SourceTypeSQLite:
		return NewSQLiteSource(location, o)
	default:
		return NewFileSource(location, o)
	}
}
