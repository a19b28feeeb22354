package offload

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/marmos91/smboffload/internal/adapter/smb/smbenc"
	"github.com/marmos91/smboffload/internal/logger"
)

// Kind is the FSCTL code of the offload operation a token was issued for.
type Kind uint32

const (
	// KindDuplicateExtents is FSCTL_DUPLICATE_EXTENTS_TO_FILE [MS-FSCC] 2.3.8.
	KindDuplicateExtents Kind = 0x00098344

	// KindRequestResumeKey is FSCTL_SRV_REQUEST_RESUME_KEY [MS-SMB2] 2.2.31.
	KindRequestResumeKey Kind = 0x00140078
)

// Token lengths per kind.
const (
	DuplicateExtentsTokenLen = 20
	ResumeKeyTokenLen        = 24

	// tokenHeaderLen covers persistent id, volatile id and kind.
	tokenHeaderLen = 20
)

// String returns the FSCTL name.
func (k Kind) String() string {
	switch k {
	case KindDuplicateExtents:
		return "FSCTL_DUPLICATE_EXTENTS_TO_FILE"
	case KindRequestResumeKey:
		return "FSCTL_SRV_REQUEST_RESUME_KEY"
	default:
		return fmt.Sprintf("FSCTL(0x%08X)", uint32(k))
	}
}

// ParseKind parses a kind name as accepted on the command line:
// "dup-extents", "resume-key", an FSCTL name or a numeric code.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dup-extents", "duplicate-extents", "fsctl_duplicate_extents_to_file":
		return KindDuplicateExtents, nil
	case "resume-key", "request-resume-key", "fsctl_srv_request_resume_key":
		return KindRequestResumeKey, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown token kind %q (valid: dup-extents, resume-key)", s)
	}
	return Kind(n), nil
}

// TokenLen returns the token length for k, or 0 if k is not an offload kind.
func (k Kind) TokenLen() int {
	switch k {
	case KindDuplicateExtents:
		return DuplicateExtentsTokenLen
	case KindRequestResumeKey:
		return ResumeKeyTokenLen
	default:
		return 0
	}
}

// HandleRef identifies an open handle by its SMB2 FileId halves.
type HandleRef struct {
	PersistentID uint64
	VolatileID   uint64
}

// String formats the ref as "persistent:volatile" in hex.
func (r HandleRef) String() string {
	return fmt.Sprintf("%016x:%016x", r.PersistentID, r.VolatileID)
}

// Token is an opaque offload token. Tokens are compared byte-wise and are
// never mutated after creation.
type Token []byte

// String returns the lowercase hex encoding of the token.
func (t Token) String() string {
	return hex.EncodeToString(t)
}

// Equal reports whether t and o hold the same bytes.
func (t Token) Equal(o Token) bool {
	return bytes.Equal(t, o)
}

// Clone returns an independent copy of t.
func (t Token) Clone() Token {
	if t == nil {
		return nil
	}
	return append(Token(nil), t...)
}

// CreateToken builds the token identifying ref for the given offload kind.
//
// Layout (little-endian):
//
//	[0,8)   persistent id
//	[8,16)  volatile id
//	[16,20) kind
//	[20,24) zero padding, resume-key tokens only
func CreateToken(ref HandleRef, kind Kind) (Token, error) {
	n := kind.TokenLen()
	if n == 0 {
		logger.Error("Unsupported offload operation", logger.Fsctl(uint32(kind)))
		return nil, newError(ErrUnsupportedOperation,
			fmt.Sprintf("unsupported offload fsctl 0x%08X", uint32(kind)), nil, nil)
	}

	w := smbenc.NewWriter(n)
	w.WriteUint64(ref.PersistentID)
	w.WriteUint64(ref.VolatileID)
	w.WriteUint32(uint32(kind))
	w.WriteZeros(n - tokenHeaderLen)

	return Token(w.Bytes()), nil
}

// ParseToken decodes a token produced by CreateToken. It validates the kind,
// the total length for that kind and the zero padding.
func ParseToken(b []byte) (HandleRef, Kind, error) {
	r := smbenc.NewReader(b)
	ref := HandleRef{
		PersistentID: r.ReadUint64(),
		VolatileID:   r.ReadUint64(),
	}
	kind := Kind(r.ReadUint32())
	if err := r.Err(); err != nil {
		return HandleRef{}, 0, fmt.Errorf("offload token too short (%d bytes): %w", len(b), err)
	}

	n := kind.TokenLen()
	if n == 0 {
		return HandleRef{}, 0, newError(ErrUnsupportedOperation,
			fmt.Sprintf("unsupported offload fsctl 0x%08X", uint32(kind)), Token(b), nil)
	}
	if len(b) != n {
		return HandleRef{}, 0, fmt.Errorf("offload token for %s must be %d bytes, got %d", kind, n, len(b))
	}
	for _, p := range r.ReadBytes(r.Remaining()) {
		if p != 0 {
			return HandleRef{}, 0, fmt.Errorf("offload token padding is not zero")
		}
	}

	return ref, kind, nil
}
