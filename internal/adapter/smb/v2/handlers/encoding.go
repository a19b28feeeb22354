package handlers

import (
	"fmt"

	"github.com/marmos91/smboffload/internal/adapter/smb/smbenc"
)

// Client-side encoders for the requests the offload handlers accept. The
// probe command and tests drive the handlers through these.

// Encode serializes the request. Input is placed directly after the fixed
// part and MaxInputResponse is sent as is.
func (r *IoctlRequest) Encode() []byte {
	w := smbenc.NewWriter(ioctlRequestFixedSize + len(r.Input))
	w.WriteUint16(ioctlRequestStructureSize)
	w.WriteUint16(0) // Reserved
	w.WriteUint32(r.CtlCode)
	w.WriteFileID(r.FileID)
	if len(r.Input) > 0 {
		w.WriteUint32(smb2HeaderSize + ioctlRequestFixedSize)
	} else {
		w.WriteUint32(0)
	}
	w.WriteUint32(uint32(len(r.Input)))
	w.WriteUint32(r.MaxInputResponse)
	w.WriteUint32(0) // OutputOffset
	w.WriteUint32(0) // OutputCount
	w.WriteUint32(r.MaxOutputResponse)
	w.WriteUint32(r.Flags)
	w.WriteUint32(0) // Reserved2
	w.WriteBytes(r.Input)
	return w.Bytes()
}

// NewFsctlRequest builds an FSCTL IOCTL request with the IS_FSCTL flag set.
func NewFsctlRequest(ctlCode uint32, fileID [16]byte, input []byte, maxOutput uint32) *IoctlRequest {
	return &IoctlRequest{
		CtlCode:           ctlCode,
		FileID:            fileID,
		MaxOutputResponse: maxOutput,
		Flags:             ioctlFlagIsFsctl,
		Input:             input,
	}
}

// IoctlResponse is a decoded SMB2 IOCTL response [MS-SMB2] 2.2.32.
type IoctlResponse struct {
	CtlCode uint32
	FileID  [16]byte
	Output  []byte
}

// DecodeIoctlResponse parses an IOCTL response body.
func DecodeIoctlResponse(body []byte) (*IoctlResponse, error) {
	r := smbenc.NewReader(body)
	r.ExpectUint16(ioctlResponseStructureSize)
	r.Skip(2) // Reserved
	resp := &IoctlResponse{
		CtlCode: r.ReadUint32(),
		FileID:  r.ReadFileID(),
	}
	r.Skip(8) // InputOffset + InputCount
	outputOffset := r.ReadUint32()
	outputCount := r.ReadUint32()
	if err := r.Err(); err != nil {
		return nil, err
	}

	start := int64(outputOffset) - smb2HeaderSize
	end := start + int64(outputCount)
	if outputCount > 0 && (start < ioctlResponseFixedSize || end > int64(len(body))) {
		return nil, fmt.Errorf("ioctl output out of bounds: offset %d count %d body %d", outputOffset, outputCount, len(body))
	}
	if outputCount > 0 {
		resp.Output = body[start:end]
	}
	return resp, nil
}

// Encode serializes SRV_COPYCHUNK_COPY.
func (r *CopyChunkRequest) Encode() []byte {
	w := smbenc.NewWriter(copyChunkHeaderSize + len(r.Chunks)*copyChunkEntrySize)
	w.WriteBytes(r.SourceKey)
	w.WriteUint32(uint32(len(r.Chunks)))
	w.WriteUint32(0) // Reserved
	for _, c := range r.Chunks {
		w.WriteUint64(c.SourceOffset)
		w.WriteUint64(c.TargetOffset)
		w.WriteUint32(c.Length)
		w.WriteUint32(0) // Reserved
	}
	return w.Bytes()
}

// DecodeCopyChunkResponse parses SRV_COPYCHUNK_RESPONSE.
func DecodeCopyChunkResponse(data []byte) (*CopyChunkResponse, error) {
	r := smbenc.NewReader(data)
	resp := &CopyChunkResponse{
		ChunksWritten:     r.ReadUint32(),
		ChunkBytesWritten: r.ReadUint32(),
		TotalBytesWritten: r.ReadUint32(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Encode serializes DUPLICATE_EXTENTS_DATA.
func (r *DuplicateExtentsRequest) Encode() []byte {
	w := smbenc.NewWriter(duplicateExtentsDataSize)
	w.WriteFileID(r.SourceFileID)
	w.WriteUint64(r.SourceFileOffset)
	w.WriteUint64(r.TargetFileOffset)
	w.WriteUint64(r.ByteCount)
	return w.Bytes()
}

// Encode serializes the CLOSE request.
func (r *CloseRequest) Encode() []byte {
	w := smbenc.NewWriter(closeRequestStructureSize)
	w.WriteUint16(closeRequestStructureSize)
	w.WriteUint16(r.Flags)
	w.WriteUint32(0) // Reserved
	w.WriteFileID(r.FileID)
	return w.Bytes()
}
