package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := NewLedger(reg)

	l.OnResult("place", "OK")
	l.OnResult("place", "OK")
	l.OnResult("place", "DuplicateBet")
	l.OnConflict("settle")

	assert.Equal(t, 2.0, testutil.ToFloat64(l.Operations.WithLabelValues("place", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.Operations.WithLabelValues("place", "DuplicateBet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.Conflicts.WithLabelValues("settle")))
}

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return port
}

func TestMetricsServer_Healthz(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	port := freePort(t)
	srv := StartMetricsServer(port, func(ctx context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("pg down")
	})
	defer srv.Close()

	url := "http://127.0.0.1:" + port + "/healthz"
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(url)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 10*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	healthy.Store(false)
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "pg down")
}
