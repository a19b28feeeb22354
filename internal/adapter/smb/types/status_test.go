package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusSuccess, "STATUS_SUCCESS"},
		{StatusObjectNameNotFound, "STATUS_OBJECT_NAME_NOT_FOUND"},
		{StatusNoMemory, "STATUS_NO_MEMORY"},
		{StatusInternalError, "STATUS_INTERNAL_ERROR"},
		{Status(0xC0001234), "STATUS_0xC0001234"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestStatus_Severity(t *testing.T) {
	assert.True(t, StatusSuccess.IsSuccess())
	assert.False(t, StatusSuccess.IsError())
	assert.Equal(t, 0, StatusSuccess.Severity())

	assert.True(t, StatusNotSupported.IsError())
	assert.False(t, StatusNotSupported.IsSuccess())
	assert.Equal(t, 3, StatusNotSupported.Severity())

	warning := Status(0x80000005)
	assert.False(t, warning.IsSuccess())
	assert.False(t, warning.IsError())
	assert.Equal(t, 2, warning.Severity())
}

func TestFsctlName(t *testing.T) {
	assert.Equal(t, "FSCTL_SRV_REQUEST_RESUME_KEY", FsctlName(FsctlSrvRequestResumeKey))
	assert.Equal(t, "FSCTL_SRV_COPYCHUNK_WRITE", FsctlName(FsctlSrvCopyChunkWrite))
	assert.Equal(t, "FSCTL_0x00140204", FsctlName(0x00140204))
	assert.Equal(t, "IOCTL", CommandIoctl.String())
}
