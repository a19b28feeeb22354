package offload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefCodec(t *testing.T) {
	ref := HandleRef{PersistentID: 0x0102030405060708, VolatileID: 42}

	value := encodeRef(ref)
	require.Len(t, value, refValueLen)
	assert.Equal(t, byte(refVersion1), value[0])

	got, err := decodeRef(value)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestRefCodec_Corrupt(t *testing.T) {
	valid := encodeRef(HandleRef{PersistentID: 1, VolatileID: 2})

	badVersion := append([]byte(nil), valid...)
	badVersion[0] = 0x02

	tests := []struct {
		name  string
		value []byte
	}{
		{"Empty", []byte{}},
		{"PointerSized", make([]byte, 8)},
		{"Truncated", valid[:16]},
		{"Extended", append(append([]byte(nil), valid...), 0)},
		{"UnknownVersion", badVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRef(tt.value)
			assert.ErrorIs(t, err, ErrCorruptEntry)
		})
	}
}
