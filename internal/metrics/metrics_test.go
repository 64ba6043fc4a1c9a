package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(AuthRequests.WithLabelValues("login", "ok"))
	AuthRequests.WithLabelValues("login", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AuthRequests.WithLabelValues("login", "ok")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	PresenceWrites.WithLabelValues("typing").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `duo_presence_writes_total{kind="typing"}`)
}
