package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/smboffload/pkg/offload"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "--no-color"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestTokenEncode(t *testing.T) {
	out, err := execute(t, "token", "encode", "--persistent", "1", "--volatile", "0x2", "--kind", "resume-key", "-o", "json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "010000000000000002000000000000007800140000000000", got["token"])
	assert.Equal(t, "24", got["length"])
	assert.Equal(t, offload.KindRequestResumeKey.String(), got["kind"])
}

func TestTokenEncode_InvalidInput(t *testing.T) {
	_, err := execute(t, "token", "encode", "--persistent", "nope")
	assert.Error(t, err)

	_, err = execute(t, "token", "encode", "--kind", "clone")
	assert.Error(t, err)
}

func TestTokenDecode(t *testing.T) {
	out, err := execute(t, "token", "decode", "0x0a000000000000000b0000000000000044830900", "-o", "json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "0x000000000000000A", got["persistent_id"])
	assert.Equal(t, "0x000000000000000B", got["volatile_id"])
	assert.Equal(t, offload.KindDuplicateExtents.String(), got["kind"])
	assert.Equal(t, "20", got["length"])
}

func TestTokenDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"NotHex", "zz"},
		{"TooShort", "0102"},
		{"WrongLengthForKind", "010000000000000002000000000000007800140000"},
		{"NonZeroPadding", "010000000000000002000000000000007800140001000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "token", "decode", tt.hex)
			assert.Error(t, err)
		})
	}
}

func TestTokenDecode_Table(t *testing.T) {
	out, err := execute(t, "token", "decode", "010000000000000002000000000000007800140000000000")
	require.NoError(t, err)
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "persistent_id")
	assert.Contains(t, out, "FSCTL_SRV_REQUEST_RESUME_KEY")
}

func TestProbe(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		out, err := execute(t, "probe", "--metrics", "--size", "3000000", "--log-level", "error", "-o", "json")
		require.NoError(t, err, out)

		var report ProbeReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "memory", report.Backend)
		assert.False(t, report.Failed())

		steps := make([]string, 0, len(report.Steps))
		for _, s := range report.Steps {
			steps = append(steps, s.Step)
		}
		assert.Equal(t, []string{"request-resume-key", "copychunk", "duplicate-extents", "close", "verify-release"}, steps)
		assert.Contains(t, report.Steps[1].Detail, "3 chunks, 3000000 bytes")

		values := map[string]float64{}
		for _, m := range report.Metrics {
			values[m.Name+"{"+m.Labels+"}"] = m.Value
		}
		assert.Equal(t, 2.0, values["smboffload_tokens_store_total{result=created}"])
		assert.Equal(t, 2.0, values["smboffload_tokens_release_total{result=ok}"])
		assert.Equal(t, 0.0, values["smboffload_tokens_active{}"])
		assert.Equal(t, 1.0, values["smboffload_smb_requests_total{command=CLOSE,fsctl=,status=STATUS_SUCCESS}"])
		assert.Equal(t, 1.0, values["smboffload_smb_requests_total{command=IOCTL,fsctl=FSCTL_SRV_COPYCHUNK,status=STATUS_SUCCESS}"])
		assert.Equal(t, 6000000.0, values["smboffload_smb_bytes_copied_total{fsctl=FSCTL_SRV_COPYCHUNK}"]+values["smboffload_smb_bytes_copied_total{fsctl=FSCTL_DUPLICATE_EXTENTS_TO_FILE}"])
		assert.Equal(t, 2.0, values["smboffload_smb_open_files{}"])
	})

	t.Run("Table", func(t *testing.T) {
		out, err := execute(t, "probe", "--log-level", "error")
		require.NoError(t, err, out)
		assert.Contains(t, out, "Backend: memory")
		assert.Contains(t, out, "Probe passed")
		assert.NotContains(t, out, "METRIC")
	})

	t.Run("InvalidSize", func(t *testing.T) {
		_, err := execute(t, "probe", "--size", "0", "--log-level", "error")
		assert.Error(t, err)
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		_, err := execute(t, "probe", "--log-level", "loud")
		assert.Error(t, err)
	})
}

func TestProbe_BadgerBackend(t *testing.T) {
	t.Setenv("SMBOFFLOAD_OFFLOAD_BACKEND", "badger")
	t.Setenv("SMBOFFLOAD_OFFLOAD_BADGER_DIR", t.TempDir())

	out, err := execute(t, "probe", "--log-level", "error", "-o", "yaml")
	require.NoError(t, err, out)
	assert.Contains(t, out, "backend: badger")
	assert.NotContains(t, out, "ok: false")
}
