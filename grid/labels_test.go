package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "A18", Label(0, 0))
	assert.Equal(t, "K1", Label(Rows-1, Cols-1))
	assert.Equal(t, "F9", Label(9, 5))
	assert.Equal(t, "", Label(Rows, 0))
	assert.Equal(t, "", Label(0, -1))
}

func TestGrid_Holds(t *testing.T) {
	var g Grid
	g[17][0] = 1
	g[0][10] = 1
	g[9][5] = 1
	assert.Equal(t, []string{"K18", "F9", "A1"}, g.Holds())
	assert.Equal(t, 3, g.Count())
}
