package sceneapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
	"github.com/signalsfoundry/globeview/internal/observability"
)

func newTestHTTP(t *testing.T) (*httptest.Server, *observability.APICollector) {
	t.Helper()
	collector, err := observability.NewAPICollector(prometheus.NewRegistry())
	require.NoError(t, err)
	v := newTestViewer(t)
	srv := httptest.NewServer(NewRouter("globeview-test", v, WithHTTPMetrics(collector)))
	t.Cleanup(srv.Close)
	return srv, collector
}

func TestHTTPDocumentAndEntities(t *testing.T) {
	srv, collector := newTestHTTP(t)
	ctx := context.Background()

	for _, format := range []czml.Format{czml.FormatJSON, czml.FormatMsgpackZstd} {
		client := NewHTTPClient(srv.URL, WithFormat(format))
		res, err := client.PostDocument(ctx, []dynamic.Packet{staticPoint("a"), staticPoint("b")})
		require.NoError(t, err, format.String())
		require.Equal(t, 2.0, res["created"], format.String())
	}

	client := NewHTTPClient(srv.URL)
	snap, err := client.Entity(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "sat a", snap["label"].(map[string]any)["text"])

	_, err = client.Entity(ctx, "missing")
	require.ErrorContains(t, err, "404")

	clock, err := client.Clock(ctx)
	require.NoError(t, err)
	require.Equal(t, "3D", clock.Mode)
	require.Equal(t, "unbounded", clock.Range)
	require.Equal(t, 60.0, clock.Multiplier)

	require.Equal(t, 2.0, testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("/v1/document", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("/v1/entities/{id}", "404")))
}

func TestHTTPPacketsQueueUntilFrame(t *testing.T) {
	v := newTestViewer(t)
	srv := httptest.NewServer(NewRouter("globeview-test", v))
	defer srv.Close()
	client := NewHTTPClient(srv.URL)
	ctx := context.Background()

	res, err := client.PostPackets(ctx, []dynamic.Packet{staticPoint("q")}, false)
	require.NoError(t, err)
	require.Equal(t, 1.0, res["queued"])
	require.Nil(t, v.Collection().Get("q"))
	require.Equal(t, 1, v.Pending())

	_, err = v.Frame(ctx)
	require.NoError(t, err)
	require.NotNil(t, v.Collection().Get("q"))

	res, err = client.PostPackets(ctx, []dynamic.Packet{staticPoint("s")}, true)
	require.NoError(t, err)
	require.Equal(t, 1.0, res["processed"])
	require.NotNil(t, v.Collection().Get("s"))
}

func TestHTTPErrorsAndHeaders(t *testing.T) {
	srv, _ := newTestHTTP(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/packets?sync=true", strings.NewReader(`{"not": "packets"`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", ContentTypeJSON)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "req-42", resp.Header.Get(requestIDHeader))

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/v1/entities/nobody", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, err = http.NewRequest(http.MethodOptions, srv.URL+"/v1/clock", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHTTPClientPropagatesRequestID(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(requestIDHeader)
		w.Header().Set("Content-Type", ContentTypeJSON)
		_, _ = w.Write([]byte(`{"currentTime":"2012-03-15T10:00:00Z"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ctx = logging.ContextWithRequestID(ctx, "abc")
	state, err := NewHTTPClient(srv.URL).Clock(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc", seen)
	require.Equal(t, "2012-03-15T10:00:00Z", state.Current)
}
