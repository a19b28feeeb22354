package offload

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Run("WithToken", func(t *testing.T) {
		err := newError(ErrNotFound, "offload token not found", Token{0xAB, 0x01}, nil)
		assert.Equal(t, "NotFound: offload token not found (token: ab01)", err.Error())
	})

	t.Run("WithCause", func(t *testing.T) {
		cause := errors.New("disk on fire")
		err := newError(ErrInternal, "failed to open offload token store", nil, cause)
		assert.Equal(t, "InternalError: failed to open offload token store: disk on fire", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newError(ErrInternal, "collision", nil, nil))

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, &Error{Code: ErrInternal})
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrOutOfMemory)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeOf(newError(ErrNotFound, "x", nil, nil)))
	assert.Equal(t, ErrUnsupportedOperation, CodeOf(fmt.Errorf("ctx: %w", ErrUnsupportedOperation)))
	assert.Equal(t, ErrorCode(0), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(0), CodeOf(nil))
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "OutOfMemory", ErrOutOfMemory.String())
	assert.Equal(t, "UnsupportedOperation", ErrUnsupportedOperation.String())
	assert.Equal(t, "NotFound", ErrNotFound.String())
	assert.Equal(t, "InternalError", ErrInternal.String())
	assert.Equal(t, "Unknown(99)", ErrorCode(99).String())
}

func TestNewError_ClonesToken(t *testing.T) {
	tok := Token{1, 2, 3}
	err := newError(ErrNotFound, "x", tok, nil)
	tok[0] = 9
	assert.Equal(t, Token{1, 2, 3}, err.Token)
}
