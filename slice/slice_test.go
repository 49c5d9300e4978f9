package slice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceHelpers(t *testing.T) {
	in := []int{1, 2, 3, 4}

	assert.Equal(t, []int{2, 4, 6, 8}, Map(in, func(v int) int { return v * 2 }))
	assert.True(t, All(in, func(v int) bool { return v > 0 }))
	assert.False(t, All(in, func(v int) bool { return v > 1 }))
	assert.Equal(t, []int{2, 4}, Filter(in, func(v int) bool { return v%2 == 0 }))

	v, ok := Find(in, func(v int) bool { return v > 2 })
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = Last(in, func(v int) bool { return v < 3 })
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = Find(in, func(v int) bool { return v > 10 })
	assert.False(t, ok)
}
