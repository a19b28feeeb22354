package types

import "fmt"

// Command is an SMB2 command code [MS-SMB2] 2.2.1.
type Command uint16

const (
	CommandClose Command = 0x0006
	CommandIoctl Command = 0x000B
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CommandClose:
		return "CLOSE"
	case CommandIoctl:
		return "IOCTL"
	default:
		return fmt.Sprintf("COMMAND_0x%04X", uint16(c))
	}
}

// FSCTL control codes handled by the offload IOCTL handlers.
const (
	FsctlDuplicateExtentsToFile uint32 = 0x00098344 // [MS-FSCC] 2.3.8
	FsctlSrvRequestResumeKey    uint32 = 0x00140078 // [MS-SMB2] 2.2.31.3
	FsctlSrvCopyChunk           uint32 = 0x001440F2 // [MS-SMB2] 2.2.31.1
	FsctlSrvCopyChunkWrite      uint32 = 0x001480F2 // [MS-SMB2] 2.2.31.1
)

// FsctlName returns the symbolic name of an FSCTL code.
func FsctlName(code uint32) string {
	switch code {
	case FsctlDuplicateExtentsToFile:
		return "FSCTL_DUPLICATE_EXTENTS_TO_FILE"
	case FsctlSrvRequestResumeKey:
		return "FSCTL_SRV_REQUEST_RESUME_KEY"
	case FsctlSrvCopyChunk:
		return "FSCTL_SRV_COPYCHUNK"
	case FsctlSrvCopyChunkWrite:
		return "FSCTL_SRV_COPYCHUNK_WRITE"
	default:
		return fmt.Sprintf("FSCTL_0x%08X", code)
	}
}

// Server-side copy limits advertised in SRV_COPYCHUNK_RESPONSE when a
// request exceeds them [MS-SMB2] 3.3.3.
const (
	ServerSideCopyMaxNumberOfChunks = 256
	ServerSideCopyMaxChunkSize      = 1 << 20
	ServerSideCopyMaxDataSize       = 16 << 20
)
