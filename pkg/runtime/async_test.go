package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAsyncRuntimeFIFO(t *testing.T) {
	rt := NewDefaultAsyncRuntime()
	var order []int
	rt.ScheduleMicrotask(func() { order = append(order, 1) })
	rt.ScheduleMicrotask(func() {
		order = append(order, 2)
		rt.ScheduleMicrotask(func() { order = append(order, 4) })
	})
	rt.ScheduleMicrotask(func() { order = append(order, 3) })
	require.Equal(t, 3, rt.Pending())

	assert.True(t, rt.RunUntilIdle())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 1, rt.Pending())

	assert.True(t, rt.RunUntilIdle())
	assert.Equal(t, []int{1, 2, 3, 4}, order)
	assert.False(t, rt.RunUntilIdle())
}

func TestDefaultAsyncRuntimeReset(t *testing.T) {
	rt := NewDefaultAsyncRuntime()
	ran := false
	rt.ScheduleMicrotask(func() { ran = true })
	rt.Reset()
	assert.False(t, rt.RunUntilIdle())
	assert.False(t, ran)
}
