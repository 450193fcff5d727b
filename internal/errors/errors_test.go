package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrap_PreservesCode(t *testing.T) {
	base := errors.NotFoundf("effect %s", "Actor.a.ActiveEffect.e")
	wrapped := errors.Wrap(base, "resolve origin")

	assert.True(t, errors.IsNotFound(wrapped))
	assert.Equal(t, "resolve origin: effect Actor.a.ActiveEffect.e", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWrap_ForeignErrorIsUnknown(t *testing.T) {
	wrapped := errors.Wrap(stderrors.New("boom"), "call coordinator")
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(wrapped))
	assert.Nil(t, errors.Wrap(nil, "nothing"))
}

func TestWrapWithCode(t *testing.T) {
	wrapped := errors.WrapWithCode(stderrors.New("lease expired"), errors.CodeUnavailable, "no coordinator")
	assert.True(t, errors.IsUnavailable(wrapped))
	assert.False(t, errors.IsValidation(wrapped))
}

func TestWithMeta(t *testing.T) {
	err := errors.InvalidArgumentf("bad payload").WithMeta("procedure", "auras.applyEffect")
	assert.True(t, errors.IsInvalidArgument(err))
	assert.Equal(t, "auras.applyEffect", err.Meta["procedure"])

	wrapped := errors.Wrap(err, "decode")
	wrapped.Meta["procedure"] = "changed"
	assert.Equal(t, "auras.applyEffect", err.Meta["procedure"])
}
