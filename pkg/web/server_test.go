package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isokit/isokit/pkg/iso"
	"github.com/isokit/isokit/pkg/outputcache"
	"github.com/isokit/isokit/pkg/reactive"
	"github.com/isokit/isokit/pkg/vdom"
)

func testPageDescriptor() *iso.Descriptor {
	return iso.NewDescriptor(iso.Descriptor{
		Name: "web.greeting",
		Component: func(props vdom.Props) *vdom.VNode {
			return vdom.P(nil, vdom.Textf("hi %v", props["who"]))
		},
		GetData: func(props vdom.Props, hydration map[string]any) reactive.Stream[iso.Emission] {
			return reactive.Once(iso.Emission{
				State:     vdom.Props{"who": props["user"]},
				Hydration: map[string]any{"who": props["user"]},
			})
		},
	})
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	// Isolated registry per test; the global one rejects duplicate
	// collector registration.
	cfg.Registry = prometheus.NewRegistry()
	srv := NewServer(cfg)

	desc := testPageDescriptor()
	srv.HandlePage("/", func(r *http.Request) []*vdom.VNode {
		user := r.URL.Query().Get("user")
		if user == "" {
			user = "ada"
		}
		return []*vdom.VNode{desc.Element(vdom.Props{"user": user})}
	})
	return srv
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func TestServePage(t *testing.T) {
	srv := newTestServer(t, Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, body := get(t, ts, "/?user=grace")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "hi grace")
	assert.Contains(t, body, `type="application/x-isokit-state"`,
		"served pages carry hydration records")
}

func TestServePageCacheHit(t *testing.T) {
	cache, err := outputcache.NewMemory(8)
	require.NoError(t, err)

	srv := newTestServer(t, Config{
		Cache: cache,
		TTL:   outputcache.TTLPolicy{Default: time.Minute, Degraded: time.Second},
		Variant: func(r *http.Request) string {
			return r.URL.Query().Get("user")
		},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp1, body1 := get(t, ts, "/?user=ada")
	assert.Empty(t, resp1.Header.Get("X-Cache"))

	resp2, body2 := get(t, ts, "/?user=ada")
	assert.Equal(t, "hit", resp2.Header.Get("X-Cache"))
	assert.Equal(t, body1, body2, "cached page is byte-identical, records included")

	// A different variant misses.
	resp3, _ := get(t, ts, "/?user=grace")
	assert.Empty(t, resp3.Header.Get("X-Cache"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get(t, ts, "/")

	resp, body := get(t, ts, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "isokit_renders_total")
	assert.Contains(t, body, "isokit_render_duration_seconds")
}
