// Package types contains the SMB2 constants used by the copy-offload IOCTL
// handlers: NT_STATUS codes, command codes and FSCTL control codes.
//
// NT_STATUS codes are 32-bit values:
//
//	Bits 31-30: Severity (00=Success, 01=Info, 10=Warning, 11=Error)
//	Bit 29:     Customer code flag
//	Bits 16-28: Facility code
//	Bits 0-15:  Error code
//
// References:
//
//   - [MS-SMB2] Server Message Block Protocol Versions 2 and 3
//   - [MS-ERREF] Windows Error Codes
//   - [MS-FSCC] File System Control Codes
package types
