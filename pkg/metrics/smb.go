// Package metrics defines the observability interfaces of the SMB offload
// handlers. Implementations live in pkg/metrics/prometheus.
package metrics

import "time"

// SMBMetrics provides observability for the SMB2 offload handlers.
//
// This interface is optional: pass nil to disable request metrics.
//
// Example usage:
//
//	reg := prometheus.NewRegistry()
//	h, err := handlers.NewHandler(handlers.Options{
//		RequestMetrics: smbprom.NewSMBMetrics(reg),
//	})
type SMBMetrics interface {
	// RecordRequest records a completed SMB2 request.
	//
	// Parameters:
	//   - command: SMB2 command name ("IOCTL", "CLOSE")
	//   - fsctl: FSCTL name for IOCTL requests, empty otherwise
	//   - duration: Time taken to process the request
	//   - status: NT_STATUS name returned to the client
	RecordRequest(command string, fsctl string, duration time.Duration, status string)

	// RecordBytesCopied records bytes moved by a server-side copy.
	//
	// Parameters:
	//   - fsctl: FSCTL name of the copy operation
	//   - bytes: Number of bytes copied
	RecordBytesCopied(fsctl string, bytes uint64)

	// SetOpenFiles updates the number of open file handles.
	SetOpenFiles(count int)
}
