package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMBMetrics_NilRegistry(t *testing.T) {
	assert.Nil(t, NewSMBMetrics(nil))
}

func TestSMBMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSMBMetrics(reg)
	require.NotNil(t, m)

	m.RecordRequest("IOCTL", "FSCTL_SRV_COPYCHUNK", 2*time.Millisecond, "STATUS_SUCCESS")
	m.RecordRequest("IOCTL", "FSCTL_SRV_COPYCHUNK", time.Millisecond, "STATUS_SUCCESS")
	m.RecordRequest("CLOSE", "", time.Microsecond, "STATUS_FILE_CLOSED")
	m.RecordBytesCopied("FSCTL_SRV_COPYCHUNK", 4096)
	m.SetOpenFiles(3)

	impl := m.(*smbMetrics)
	assert.Equal(t, 2.0, testutil.ToFloat64(impl.requestsTotal.WithLabelValues("IOCTL", "FSCTL_SRV_COPYCHUNK", "STATUS_SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.requestsTotal.WithLabelValues("CLOSE", "", "STATUS_FILE_CLOSED")))
	assert.Equal(t, 4096.0, testutil.ToFloat64(impl.bytesCopied.WithLabelValues("FSCTL_SRV_COPYCHUNK")))
	assert.Equal(t, 3.0, testutil.ToFloat64(impl.openFiles))
	assert.Equal(t, 2, testutil.CollectAndCount(impl.requestDuration))
}

func TestSMBMetrics_NilReceiver(t *testing.T) {
	var m *smbMetrics
	assert.NotPanics(t, func() {
		m.RecordRequest("IOCTL", "", 0, "")
		m.RecordBytesCopied("", 1)
		m.SetOpenFiles(1)
	})
}
