package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vanderheijden86/clusterview/pkg/bundle"
	"github.com/vanderheijden86/clusterview/pkg/query"
	"github.com/vanderheijden86/clusterview/pkg/threshold"
)

var testKey = query.Key{Base1: "Acme", Base2: "Corp", Target1: "Acme", Target2: "Inc"}

func bundleJSON(ths ...threshold.Threshold) string {
	var parts []string
	for _, th := range ths {
		parts = append(parts, fmt.Sprintf(`%q:{"graph":{"nodes":[{"id":"G%s"}],"edges":[]},"options":{}}`, th, th))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func TestDetectType(t *testing.T) {
	tests := map[string]SourceType{
		"http://localhost:5000":    SourceTypeHTTP,
		"HTTPS://example.com/api":  SourceTypeHTTP,
		"/data/clusters.db":        SourceTypeSQLite,
		"bundles.sqlite3":          SourceTypeSQLite,
		"./bundle.json":            SourceTypeFile,
		"/var/lib/clusterview":     SourceTypeFile,
		"~/clusters/Acme.SQLITE":   SourceTypeSQLite,
		"ftp://example.com/x.json": SourceTypeFile,
	}
	for loc, want := range tests {
		if got := DetectType(loc); got != want {
			t.Errorf("DetectType(%q) = %s, want %s", loc, got, want)
		}
	}
}

func TestOpenEmptyLocation(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty location")
	}
}

func TestHTTPSourceFetch(t *testing.T) {
	var hits atomic.Int32
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, bundleJSON(threshold.All()...))
	}))
	defer srv.Close()

	src, err := Open(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	b, err := src.Fetch(context.Background(), testKey)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
	if gotPath != "/api/cluster" {
		t.Errorf("path = %q", gotPath)
	}
	if q := query.Parse(gotQuery); q != testKey {
		t.Errorf("query %q decoded to %+v", gotQuery, q)
	}
	if !b.Complete() {
		t.Errorf("expected complete bundle, got %v", b.Thresholds())
	}
}

func TestHTTPSourceEmptyAndInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		empty   bool
	}{
		{"empty object", `{}`, nil, true},
		{"null", `null`, nil, true},
		{"missing default", bundleJSON(3), bundle.ErrInvalidBundle, false},
		{"array", `[]`, bundle.ErrInvalidBundle, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			src, err := NewHTTPSource(srv.URL, buildOptions(nil))
			if err != nil {
				t.Fatalf("NewHTTPSource: %v", err)
			}
			b, err := src.Fetch(context.Background(), testKey)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if b.Empty() != tt.empty {
				t.Fatalf("Empty() = %v", b.Empty())
			}
		})
	}
}

func TestHTTPSourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no analogy model loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src, _ := NewHTTPSource(srv.URL, buildOptions(nil))
	_, err := src.Fetch(context.Background(), testKey)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || !strings.Contains(se.Message, "no analogy") {
		t.Fatalf("unexpected status error %+v", se)
	}
	if !IsStatus(err, http.StatusServiceUnavailable) || IsStatus(err, http.StatusNotFound) {
		t.Fatal("IsStatus mismatch")
	}
}

func TestHTTPSourceCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src, _ := NewHTTPSource(srv.URL, buildOptions(nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := src.Fetch(ctx, testKey)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Fetch did not return after cancel")
	}
}

func TestHTTPSourceTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src, _ := NewHTTPSource(srv.URL, buildOptions([]Option{WithTimeout(20 * time.Millisecond)}))
	_, err := src.Fetch(context.Background(), testKey)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestNewHTTPSourceRejectsBadURL(t *testing.T) {
	if _, err := NewHTTPSource("ftp://x", buildOptions(nil)); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestHTTPSourceURL(t *testing.T) {
	src, _ := NewHTTPSource("http://localhost:5000/?ignored=1", buildOptions([]Option{WithClusterPath("v2/cluster")}))
	got := src.URL(query.Key{Base1: "a b", Base2: "c&d"})
	want := "http://localhost:5000/v2/cluster?base1=a+b&base2=c%26d&target1=&target2="
	if got != want {
		t.Fatalf("URL = %q, want %q", got, want)
	}
}

func TestFileSourceSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := os.WriteFile(path, []byte(bundleJSON(3, 8)), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := src.Fetch(context.Background(), testKey)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if b.Len() != 2 || !b.Has(3) {
		t.Fatalf("unexpected bundle %v", b.Thresholds())
	}
	if w, ok := src.(Watchable); !ok || w.WatchPath() != path {
		t.Fatal("file source should be watchable")
	}
}

func TestFileSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, KeyFileName(testKey)), []byte(bundleJSON(8)), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := NewFileSource(dir, buildOptions(nil))
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}

	b, err := src.Fetch(context.Background(), testKey)
	if err != nil || b.Len() != 1 {
		t.Fatalf("Fetch(known) = %v, %v", b.Thresholds(), err)
	}

	other := query.Key{Base1: "x"}
	b, err = src.Fetch(context.Background(), other)
	if err != nil || !b.Empty() {
		t.Fatalf("missing key file should be no match, got %v, %v", b.Thresholds(), err)
	}
}

func TestFileSourceInvalidAndCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"0.8":{"graph":{}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	src, _ := NewFileSource(path, buildOptions(nil))
	if _, err := src.Fetch(context.Background(), testKey); !errors.Is(err, bundle.ErrInvalidBundle) {
		t.Fatalf("err = %v, want ErrInvalidBundle", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx, testKey); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestKeyFileName(t *testing.T) {
	got := KeyFileName(query.Key{Base1: "a/b", Base2: "c d", Target1: "e", Target2: ""})
	if got != "a%2Fb_c+d_e_.json" {
		t.Fatalf("KeyFileName = %q", got)
	}
}

func createClusterDB(t *testing.T, rows map[query.Key]map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clusters.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	for k, ths := range rows {
		for th, graph := range ths {
			_, err := db.Exec(`INSERT INTO cluster_bundles VALUES (?,?,?,?,?,?,?)`,
				k.Base1, k.Base2, k.Target1, k.Target2, th, graph, `{"physics":{"enabled":false}}`)
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
	}
	return path
}

func TestSQLiteSource(t *testing.T) {
	other := query.Key{Base1: "earth", Base2: "sun", Target1: "electron", Target2: "nucleus"}
	path := createClusterDB(t, map[query.Key]map[string]string{
		testKey: {
			"0.8": `{"nodes":[{"id":1}],"edges":[]}`,
			"0.3": `{"nodes":[{"id":2}],"edges":[]}`,
		},
		other: {
			"0.3": `{"nodes":[],"edges":[]}`,
		},
	})

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	b, err := src.Fetch(context.Background(), testKey)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if b.Len() != 2 || !b.Has(threshold.Default) || !b.Has(3) {
		t.Fatalf("unexpected bundle %v", b.Thresholds())
	}
	e, _ := b.Lookup(3)
	if !strings.Contains(string(e.Graph), `"id":2`) {
		t.Errorf("wrong graph for 0.3: %s", e.Graph)
	}

	// Rows without the default threshold violate the bundle contract.
	if _, err := src.Fetch(context.Background(), other); !errors.Is(err, bundle.ErrInvalidBundle) {
		t.Fatalf("err = %v, want ErrInvalidBundle", err)
	}

	b, err = src.Fetch(context.Background(), query.Key{Base1: "nobody"})
	if err != nil || !b.Empty() {
		t.Fatalf("unknown key should be no match, got %v, %v", b.Thresholds(), err)
	}

	keys, err := src.(*SQLiteSource).Keys(context.Background())
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != testKey || keys[1] != other {
		t.Fatalf("Keys = %+v", keys)
	}
}

func TestSQLiteSourceRejectsMalformedRow(t *testing.T) {
	path := createClusterDB(t, map[query.Key]map[string]string{
		testKey: {
			"0.8": `{not json`,
			"0.3": `{"nodes":[],"edges":[]}`,
		},
	})
	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if _, err := src.Fetch(context.Background(), testKey); !errors.Is(err, bundle.ErrInvalidBundle) {
		t.Fatalf("err = %v, want ErrInvalidBundle", err)
	}
}

func TestSQLiteSourceMissingDatabase(t *testing.T) {
	src, err := NewSQLiteSource(filepath.Join(t.TempDir(), "nope.db"), buildOptions(nil))
	if err != nil {
		t.Fatalf("NewSQLiteSource: %v", err)
	}
	defer src.Close()
	if _, err := src.Fetch(context.Background(), testKey); err == nil {
		t.Fatal("expected error for missing database")
	}
}
