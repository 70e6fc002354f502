package engine

import (
	"RouteGrader/grid"
	iface "RouteGrader/interface"
	"RouteGrader/model"
	"RouteGrader/model/modeltest"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFlatten_SingleCell(t *testing.T) {
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			var g grid.Grid
			g[r][c] = 1
			v := Flatten(g)
			require.Len(t, v, grid.Cells)
			want := c*grid.Rows + (grid.Rows - 1 - r)
			for i, cell := range v {
				if i == want {
					assert.Equal(t, 1, cell)
				} else if cell != 0 {
					t.Fatalf("cell (%d,%d): unexpected 1 at %d, want only %d", r, c, i, want)
				}
			}
		}
	}
}

func TestFlatten_Unflatten(t *testing.T) {
	var g grid.Grid
	g[0][0] = 1
	g[17][10] = 1
	g[4][7] = 1
	g[9][5] = 1
	back, err := Unflatten(Flatten(g))
	require.NoError(t, err)
	assert.Equal(t, g, back)

	_, err = Unflatten(make([]int, 10))
	assert.ErrorIs(t, err, iface.ErrDimensionMismatch)
}

func TestSoftmax(t *testing.T) {
	inputs := [][]float64{
		{0, 0, 0, 0, 0},
		{1, 2, 3, 4, 5},
		{-1000, 1000, 0, 3, -2},
		{710, 709, 708, 1, 0},
		{1e-9},
	}
	for _, x := range inputs {
		probs := Softmax(x)
		require.Len(t, probs, len(x))
		sum := 0.0
		for _, p := range probs {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			assert.False(t, math.IsNaN(p))
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "input %v", x)
	}
	assert.Nil(t, Softmax(nil))
}

func TestArgmax_FirstWins(t *testing.T) {
	assert.Equal(t, 1, Argmax([]float64{0.1, 0.4, 0.05, 0.4, 0.05}))
	assert.Equal(t, 0, Argmax([]float64{0.2, 0.2, 0.2, 0.2, 0.2}))
	assert.Equal(t, 4, Argmax([]float64{0, 0, 0, 0, 1}))
	assert.Equal(t, -1, Argmax(nil))
}

func TestPredict_TieBreak(t *testing.T) {
	n := modeltest.Biased(t, grid.Cells, []float64{0.5, 3, -1, 3, 2})
	res, err := Predict(grid.Grid{}, n)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ordinal)
	assert.Equal(t, "V3", res.Label)
	assert.Equal(t, res.Probabilities[1], res.Probabilities[3])
}

func TestPredict_EndToEnd(t *testing.T) {
	extent := iface.ImageExtent{Width: 1280, Height: 960}
	for _, y := range []float64{0, 123, 480, 959} {
		box := iface.Box{X: extent.Width / 2, Y: y, Width: 1, Height: 1}
		g, large, err := grid.Map([]iface.Box{box}, extent)
		require.NoError(t, err)
		require.Equal(t, 0, large)

		res, err := Predict(g, modeltest.Column(t, 5, 2))
		require.NoError(t, err)
		assert.Equal(t, "V4", res.Label)
		assert.Equal(t, 2, res.Ordinal)
		e := math.E
		assert.InDelta(t, e/(e+4), res.Probabilities[2], 1e-12)
		assert.InDelta(t, 1/(e+4), res.Probabilities[0], 1e-12)
	}
}

func TestPredict_ReLU(t *testing.T) {
	// Negative hidden activations are cut to zero, so the only logit left is
	// the last bias.
	w1 := mat.NewDense(grid.Cells, 2, nil)
	for k := 0; k < grid.Cells; k++ {
		w1.Set(k, 0, -1)
		w1.Set(k, 1, -1)
	}
	w4 := mat.NewDense(2, model.NumClasses, []float64{
		5, 5, 5, 5, 5,
		5, 5, 5, 5, 5,
	})
	n, err := model.New([]model.Layer{
		{Weights: w1, Biases: modeltest.Zeros(2)},
		{Weights: modeltest.Identity(2, 2), Biases: modeltest.Zeros(2)},
		{Weights: modeltest.Identity(2, 2), Biases: modeltest.Zeros(2)},
		{Weights: w4, Biases: mat.NewVecDense(model.NumClasses, []float64{0, 0, 0, 0, 1})},
	})
	require.NoError(t, err)

	var g grid.Grid
	g[3][3] = 1
	g[10][8] = 1
	logits, err := Forward(toFloats(Flatten(g)), n)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, logits)
}

func TestPredict_DimensionMismatch(t *testing.T) {
	n := modeltest.Biased(t, 10, []float64{1, 2, 3, 4, 5})
	_, err := Predict(grid.Grid{}, n)
	assert.ErrorIs(t, err, iface.ErrDimensionMismatch)

	_, err = PredictVector([]int{1, 0, 1}, modeltest.Network(t))
	assert.ErrorIs(t, err, iface.ErrDimensionMismatch)
}

func TestPredict_LoadedModel(t *testing.T) {
	n := modeltest.Network(t)
	var g grid.Grid
	g[2][4] = 1
	g[15][1] = 1
	first, err := Predict(g, n)
	require.NoError(t, err)
	second, err := Predict(g, n)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first.Probabilities, model.NumClasses)
	assert.Equal(t, Label(first.Ordinal), first.Label)
}

func TestLabels(t *testing.T) {
	for i, want := range []string{"V2", "V3", "V4", "V5", "V6"} {
		assert.Equal(t, want, Label(i))
		assert.Equal(t, i, OrdinalOf(want))
	}
	assert.Equal(t, "", Label(5))
	assert.Equal(t, "", Label(-1))
	assert.Equal(t, -1, OrdinalOf("V7"))
}

func toFloats(v []int) []float64 {
	x := make([]float64, len(v))
	for i, c := range v {
		x[i] = float64(c)
	}
	return x
}
