package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveRequestCountsByStatus(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/events", "200"))

	ObserveRequest(http.MethodGet, "/events", http.StatusOK, 5*time.Millisecond)
	ObserveRequest(http.MethodGet, "/events", http.StatusNotFound, time.Millisecond)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/events", "200"))
	require.Equal(t, before+1, after)

	notFound := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/events", "404"))
	require.GreaterOrEqual(t, notFound, float64(1))
}
