package arrayops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/goform/internal/arrayops"
)

func TestInsert(t *testing.T) {
	s := []string{"a", "b"}
	assert.Equal(t, []string{"x", "a", "b"}, arrayops.Insert(s, 0, "x"))
	assert.Equal(t, []string{"a", "x", "y", "b"}, arrayops.Insert(s, 1, "x", "y"))
	assert.Equal(t, []string{"a", "b", "x"}, arrayops.Insert(s, 99, "x"))
	assert.Equal(t, []string{"x", "a", "b"}, arrayops.Insert(s, -3, "x"))
	assert.Equal(t, []string{"a", "b"}, s)
}

func TestRemove(t *testing.T) {
	s := []int{0, 1, 2, 3}
	assert.Equal(t, []int{0, 3}, arrayops.Remove(s, 1, 2, 2))
	assert.Equal(t, []int{0, 1, 2, 3}, arrayops.Remove(s, 9))
	assert.Empty(t, arrayops.Remove(s))
	assert.Equal(t, []int{0, 1, 2, 3}, s)
}

func TestSwapAndMove(t *testing.T) {
	s := []string{"a", "b", "c"}
	assert.Equal(t, []string{"c", "b", "a"}, arrayops.Swap(s, 0, 2))
	assert.Equal(t, []string{"a", "c", "b"}, arrayops.Swap(s, 1, 7))
	assert.Empty(t, arrayops.Swap([]string{}, 0, 1))

	assert.Equal(t, []string{"b", "c", "a"}, arrayops.Move(s, 0, 2))
	assert.Equal(t, []string{"c", "a", "b"}, arrayops.Move(s, 2, 0))
	assert.Equal(t, s, arrayops.Move(s, 5, 0))
	assert.Equal(t, []string{"a", "b", "c"}, s)
}

func TestPadFill(t *testing.T) {
	assert.Equal(t, []int{1, 0, 0}, arrayops.Pad([]int{1}, 3))
	assert.Equal(t, []int{1}, arrayops.Pad([]int{1, 2}, 1))
	assert.Equal(t, []bool{true, true}, arrayops.Fill(2, true))
	assert.Equal(t, 3, arrayops.Clamp(5, 3))
}
