package offload

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateToken_RoundTrip(t *testing.T) {
	refs := []HandleRef{
		{PersistentID: 0, VolatileID: 0},
		{PersistentID: 1, VolatileID: 2},
		{PersistentID: 0x0102030405060708, VolatileID: 0x1122334455667788},
		{PersistentID: math.MaxUint64, VolatileID: math.MaxUint64},
	}
	kinds := []Kind{KindDuplicateExtents, KindRequestResumeKey}

	for _, kind := range kinds {
		for _, ref := range refs {
			t.Run(kind.String()+"/"+ref.String(), func(t *testing.T) {
				token, err := CreateToken(ref, kind)
				require.NoError(t, err)
				require.Len(t, token, kind.TokenLen())

				gotRef, gotKind, err := ParseToken(token)
				require.NoError(t, err)
				assert.Equal(t, ref, gotRef)
				assert.Equal(t, kind, gotKind)
			})
		}
	}
}

func TestCreateToken_Lengths(t *testing.T) {
	ref := HandleRef{PersistentID: 7, VolatileID: 9}

	dup, err := CreateToken(ref, KindDuplicateExtents)
	require.NoError(t, err)
	assert.Len(t, dup, 20)

	rk, err := CreateToken(ref, KindRequestResumeKey)
	require.NoError(t, err)
	require.Len(t, rk, 24)
	assert.Equal(t, []byte{0, 0, 0, 0}, []byte(rk[20:24]))
}

func TestCreateToken_Unsupported(t *testing.T) {
	for _, kind := range []Kind{0, 0x001440F2, 0x00098345, math.MaxUint32} {
		t.Run(kind.String(), func(t *testing.T) {
			token, err := CreateToken(HandleRef{PersistentID: 1}, kind)
			assert.Nil(t, token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedOperation)
		})
	}
}

func TestCreateToken_ResumeKeyLayout(t *testing.T) {
	token, err := CreateToken(HandleRef{PersistentID: 0x01, VolatileID: 0x02}, KindRequestResumeKey)
	require.NoError(t, err)

	want, _ := hex.DecodeString(
		"0100000000000000" +
			"0200000000000000" +
			"78001400" +
			"00000000")
	assert.Equal(t, want, []byte(token))
	assert.Equal(t, hex.EncodeToString(want), token.String())
}

func TestCreateToken_DuplicateExtentsLayout(t *testing.T) {
	token, err := CreateToken(HandleRef{PersistentID: 0xAABB, VolatileID: 0xCC}, KindDuplicateExtents)
	require.NoError(t, err)

	want, _ := hex.DecodeString(
		"bbaa000000000000" +
			"cc00000000000000" +
			"44830900")
	assert.Equal(t, want, []byte(token))
}

func TestParseToken_Errors(t *testing.T) {
	valid, err := CreateToken(HandleRef{PersistentID: 1, VolatileID: 2}, KindRequestResumeKey)
	require.NoError(t, err)

	badPadding := valid.Clone()
	badPadding[23] = 0x01

	wrongLen := append(valid.Clone(), 0x00)

	dupAsResume, err := CreateToken(HandleRef{PersistentID: 1}, KindDuplicateExtents)
	require.NoError(t, err)
	dupAsResume = append(dupAsResume, 0, 0, 0, 0)

	unknownKind := valid.Clone()
	unknownKind[16] = 0xFF

	tests := []struct {
		name  string
		input []byte
	}{
		{"Empty", nil},
		{"Short", valid[:19]},
		{"NonZeroPadding", badPadding},
		{"TooLong", wrongLen},
		{"DupExtentsWithPadding", dupAsResume},
		{"UnknownKind", unknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseToken(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestToken_CloneAndEqual(t *testing.T) {
	tok := Token{1, 2, 3}
	clone := tok.Clone()
	assert.True(t, tok.Equal(clone))

	clone[0] = 9
	assert.False(t, tok.Equal(clone))
	assert.Equal(t, byte(1), tok[0])

	assert.Nil(t, Token(nil).Clone())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "FSCTL_SRV_REQUEST_RESUME_KEY", KindRequestResumeKey.String())
	assert.Equal(t, "FSCTL_DUPLICATE_EXTENTS_TO_FILE", KindDuplicateExtents.String())
	assert.Equal(t, "FSCTL(0x001440F2)", Kind(0x001440F2).String())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "dup-extents", want: KindDuplicateExtents},
		{in: "RESUME-KEY", want: KindRequestResumeKey},
		{in: "FSCTL_SRV_REQUEST_RESUME_KEY", want: KindRequestResumeKey},
		{in: "0x00098344", want: KindDuplicateExtents},
		{in: "0x1234", want: Kind(0x1234)},
		{in: "clone", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
