package engine

import (
	"RouteGrader/grid"
	iface "RouteGrader/interface"
	"RouteGrader/model"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var labels = [model.NumClasses]string{"V2", "V3", "V4", "V5", "V6"}

// Label returns the grade name of an ordinal, or "" when out of range.
func Label(ordinal int) string {
	if ordinal < 0 || ordinal >= len(labels) {
		return ""
	}
	return labels[ordinal]
}

// OrdinalOf is the inverse of Label. It returns -1 for unknown labels.
func OrdinalOf(label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Flatten serializes g column by column, left to right, reading each column
// from the bottom row up. The network was trained on this ordering.
func Flatten(g grid.Grid) []int {
	v := make([]int, 0, grid.Cells)
	for j := 0; j < grid.Cols; j++ {
		for i := grid.Rows - 1; i >= 0; i-- {
			v = append(v, g[i][j])
		}
	}
	return v
}

// Unflatten rebuilds the grid a flattened vector was produced from.
func Unflatten(v []int) (grid.Grid, error) {
	var g grid.Grid
	if len(v) != grid.Cells {
		return g, fmt.Errorf("%w: vector has %d cells, want %d", iface.ErrDimensionMismatch, len(v), grid.Cells)
	}
	for k, cell := range v {
		j := k / grid.Rows
		i := grid.Rows - 1 - k%grid.Rows
		g[i][j] = cell
	}
	return g, nil
}

// Predict classifies a mapped route.
func Predict(g grid.Grid, n *model.Network) (iface.GradeResult, error) {
	return PredictVector(Flatten(g), n)
}

// PredictVector runs the forward pass over an already flattened route.
func PredictVector(v []int, n *model.Network) (iface.GradeResult, error) {
	x := make([]float64, len(v))
	for i, cell := range v {
		x[i] = float64(cell)
	}
	logits, err := Forward(x, n)
	if err != nil {
		return iface.GradeResult{}, err
	}
	probs := Softmax(logits)
	ordinal := Argmax(probs)
	return iface.GradeResult{
		Ordinal:       ordinal,
		Label:         Label(ordinal),
		Probabilities: probs,
	}, nil
}

// Forward returns the logits of the last layer. Hidden layers use ReLU.
func Forward(x []float64, n *model.Network) ([]float64, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: empty input", iface.ErrDimensionMismatch)
	}
	h := mat.NewVecDense(len(x), append([]float64(nil), x...))
	layers := n.Layers()
	for k, l := range layers {
		z, err := dense(h, l)
		if err != nil {
			return nil, fmt.Errorf("layer_%d: %w", k+1, err)
		}
		if k < len(layers)-1 {
			relu(z)
		}
		h = z
	}
	return mat.Col(nil, 0, h), nil
}

// dense computes h·W + b.
func dense(h *mat.VecDense, l model.Layer) (*mat.VecDense, error) {
	in, out := l.Weights.Dims()
	if h.Len() != in {
		return nil, fmt.Errorf("%w: vector of %d against %dx%d matrix", iface.ErrDimensionMismatch, h.Len(), in, out)
	}
	if l.Biases.Len() != out {
		return nil, fmt.Errorf("%w: %d biases for %d outputs", iface.ErrDimensionMismatch, l.Biases.Len(), out)
	}
	z := mat.NewVecDense(out, nil)
	z.MulVec(l.Weights.T(), h)
	z.AddVec(z, l.Biases)
	return z, nil
}

func relu(v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		if v.AtVec(i) < 0 {
			v.SetVec(i, 0)
		}
	}
}

// Softmax is the max-shifted softmax; x is left untouched.
func Softmax(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	shift := floats.Max(x)
	exps := make([]float64, len(x))
	for i, v := range x {
		exps[i] = math.Exp(v - shift)
	}
	floats.Scale(1/floats.Sum(exps), exps)
	return exps
}

// Argmax returns the index of the largest value; the first one wins on ties.
func Argmax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MaxIdx(x)
}
