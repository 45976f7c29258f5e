package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignIn(true)
	c.RecordSignIn(false)
	c.RecordSignIn(false)
	c.RecordSignOut(false)
	c.RecordUpload(1024)
	c.RecordSessionsPurged(3)
	c.RecordHTTPRequest("GET", "/", 200, 15*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.signIns.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.signIns.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signOuts.WithLabelValues("failure")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(c.uploadBytes))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sessionsPurged))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/", "200")))
}
