package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeferredRunsInOrderOnCommit(t *testing.T) {
	d := NewDeferred()
	var got []int
	d.Defer(func() { got = append(got, 1) })
	d.Defer(func() { got = append(got, 2) })
	assert.Equal(t, 2, d.Len())

	d.Run()
	assert.Equal(t, []int{1, 2}, got)
}

func TestDeferredDiscardDropsEverything(t *testing.T) {
	d := NewDeferred()
	ran := false
	d.Defer(func() { ran = true })

	d.Discard()
	assert.False(t, ran)

	// A discarded queue stays inert.
	d.Run()
	assert.False(t, ran)
	d.Defer(func() { ran = true })
	d.Run()
	assert.False(t, ran, "late registrations after discard never run")
}

func TestDeferredRunIsOneShot(t *testing.T) {
	d := NewDeferred()
	count := 0
	d.Defer(func() { count++ })
	d.Run()
	d.Run()
	assert.Equal(t, 1, count)
}
