package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordCrypto(t *testing.T) {
	before := testutil.ToFloat64(CryptoOperationsTotal.WithLabelValues("test_op", ResultFailed))
	RecordCrypto("test_op", errors.New("boom"))
	RecordCrypto("test_op", nil)
	require.Equal(t, before+1, testutil.ToFloat64(CryptoOperationsTotal.WithLabelValues("test_op", ResultFailed)))
	require.GreaterOrEqual(t, testutil.ToFloat64(CryptoOperationsTotal.WithLabelValues("test_op", ResultOK)), 1.0)
}

func TestMetricsServerHandler(t *testing.T) {
	srv, err := New("cryopay", "127.0.0.1:0")
	require.NoError(t, err)

	ChallengesIssuedTotal.Inc()

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "cryopay_challenges_issued_total")
}
