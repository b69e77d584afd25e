package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = New("sentinel")

type codedError struct{ code string }

func (e *codedError) Error() string { return e.code }

func TestWrapKeepsIdentity(t *testing.T) {
	wrapped := Wrapf(WithStack(errSentinel), "lookup %d", 7)

	assert.True(t, Is(wrapped, errSentinel))
	assert.Equal(t, "lookup 7: sentinel", wrapped.Error())
	assert.Contains(t, fmt.Sprintf("%+v", wrapped), "TestWrapKeepsIdentity")
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.NoError(t, WithStack(nil))
}

func TestIsAny(t *testing.T) {
	other := New("other")

	assert.True(t, IsAny(Wrap(errSentinel, "x"), other, errSentinel))
	assert.False(t, IsAny(errSentinel, other))
	assert.False(t, IsAny(errSentinel))
}

func TestAsType(t *testing.T) {
	coded, ok := AsType[*codedError](Wrap(&codedError{code: "E1"}, "context"))
	assert.True(t, ok)
	assert.Equal(t, "E1", coded.code)

	_, ok = AsType[*codedError](errSentinel)
	assert.False(t, ok)

	joined := Join(errSentinel, &codedError{code: "E2"})
	coded, ok = AsType[*codedError](joined)
	assert.True(t, ok)
	assert.Equal(t, "E2", coded.code)
}
