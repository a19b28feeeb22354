package offload

import (
	"errors"
	"fmt"

	"github.com/marmos91/smboffload/internal/adapter/smb/smbenc"
)

// Stored handle reference layout: one version byte followed by the persistent
// and volatile ids, little-endian.
const (
	refVersion1 = 0x01
	refValueLen = 1 + 8 + 8
)

// ErrCorruptEntry is returned when a stored value is not a valid handle
// reference. Store and Fetch wrap it in an ErrInternal error.
var ErrCorruptEntry = errors.New("offload: corrupt token store entry")

func encodeRef(ref HandleRef) []byte {
	w := smbenc.NewWriter(refValueLen)
	w.WriteUint8(refVersion1)
	w.WriteUint64(ref.PersistentID)
	w.WriteUint64(ref.VolatileID)
	return w.Bytes()
}

func decodeRef(value []byte) (HandleRef, error) {
	if len(value) != refValueLen {
		return HandleRef{}, fmt.Errorf("%w: value is %d bytes, want %d", ErrCorruptEntry, len(value), refValueLen)
	}

	r := smbenc.NewReader(value)
	if v := r.ReadUint8(); v != refVersion1 {
		return HandleRef{}, fmt.Errorf("%w: unknown value version %d", ErrCorruptEntry, v)
	}
	ref := HandleRef{
		PersistentID: r.ReadUint64(),
		VolatileID:   r.ReadUint64(),
	}
	if err := r.Err(); err != nil {
		return HandleRef{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return ref, nil
}
