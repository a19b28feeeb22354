// Package smbenc reads and writes the little-endian structures used by the
// SMB2 IOCTL copy-offload path and by offload tokens.
//
// Reader and Writer accumulate the first error, so a sequence of fields is
// checked once at the end:
//
//	r := smbenc.NewReader(input)
//	fileID := r.ReadFileID()
//	srcOff := r.ReadUint64()
//	dstOff := r.ReadUint64()
//	length := r.ReadUint64()
//	if err := r.Err(); err != nil {
//	    return err
//	}
//
// [MS-SMB2] 2.1: all multi-byte integers are little-endian.
package smbenc
