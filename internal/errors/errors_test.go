package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/powermon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryNew(t *testing.T) {
	err := errors.New().New(errors.ErrStateLoad)

	assert.Equal(t, errors.ErrStateLoad, err.Code())
	assert.Equal(t, "Failed to load persisted state", err.Error())
}

func TestFactoryWrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.New().Wrap(errors.ErrStateSave, cause)

	assert.Equal(t, errors.ErrStateSave, err.Code())
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestWithMessageAndData(t *testing.T) {
	err := errors.New().WithMessage(errors.ErrInvalidConfig, "custom message")
	assert.Equal(t, "custom message", err.Error())

	err = errors.New().WithData(errors.ErrInvalidLogLevel, "trace")
	assert.Contains(t, err.Error(), "trace")
	assert.Equal(t, "trace", err.GetData())
}

func TestHasCode(t *testing.T) {
	inner := errors.New().New(errors.ErrBlobNotFound)
	outer := errors.New().Wrap(errors.ErrStateLoad, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrStateLoad))
	assert.True(t, errors.HasCode(outer, errors.ErrBlobNotFound), "codes are found through the chain")
	assert.False(t, errors.HasCode(outer, errors.ErrStateSave))
	assert.False(t, errors.HasCode(nil, errors.ErrStateLoad))
	assert.False(t, errors.HasCode(stderrors.New("plain"), errors.ErrStateLoad))
}

func TestUnknownCodeMessage(t *testing.T) {
	err := errors.New().New(errors.ErrorCode("never_registered"))
	require.Equal(t, "never_registered", err.Error(), "unregistered codes fall back to the code itself")
}
