package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_New_StartsTemporary(t *testing.T) {
	a := New()
	assert.Equal(t, Temporary, a.Mode())
	assert.NotPanics(t, func() { a.MustBeTemporary() })
	assert.Panics(t, func() { a.MustBePermanent() })
}

func Test_SwitchMode_ReturnsPreviousModeAndUpdates(t *testing.T) {
	a := New()
	prev := a.SwitchMode(Permanent)
	assert.Equal(t, Temporary, prev)
	assert.Equal(t, Permanent, a.Mode())
	assert.NotPanics(t, func() { a.MustBePermanent() })
	assert.Panics(t, func() { a.MustBeTemporary() })

	prev = a.SwitchMode(Temporary)
	assert.Equal(t, Permanent, prev)
	assert.Equal(t, Temporary, a.Mode())
}

func Test_Default_StartsTemporary(t *testing.T) {
	assert.Equal(t, Temporary, Default.Mode())
}
