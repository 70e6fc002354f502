// Package modeltest builds small deterministic networks for tests.
package modeltest

import (
	"RouteGrader/grid"
	"RouteGrader/model"
	"encoding/json"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// Dims is the smallest layout accepted by model.Load.
var Dims = []int{model.InputWidth, 8, 6, 4, model.NumClasses}

// File is the JSON layout of a serialized network.
type File struct {
	Weights map[string][][]float64 `json:"weights"`
	Biases  map[string][]float64   `json:"biases"`
}

// NewFile fills every layer of dims with small, distinct values.
func NewFile(dims []int) File {
	f := File{
		Weights: map[string][][]float64{},
		Biases:  map[string][]float64{},
	}
	for k := 0; k+1 < len(dims); k++ {
		key := "layer_" + string(rune('1'+k))
		w := make([][]float64, dims[k])
		for i := range w {
			w[i] = make([]float64, dims[k+1])
			for j := range w[i] {
				w[i][j] = float64((i*7+j*3+k)%11-5) / 10
			}
		}
		b := make([]float64, dims[k+1])
		for j := range b {
			b[j] = float64(j%3) / 100
		}
		f.Weights[key] = w
		f.Biases[key] = b
	}
	return f
}

func (f File) Bytes(t testing.TB) []byte {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal model: %v", err)
	}
	return data
}

// Network loads NewFile(Dims).
func Network(t testing.TB) *model.Network {
	t.Helper()
	n, err := model.Load(NewFile(Dims).Bytes(t))
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	return n
}

// Identity returns an in x out matrix with ones on the diagonal.
func Identity(in, out int) *mat.Dense {
	m := mat.NewDense(in, out, nil)
	for i := 0; i < in && i < out; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Zeros returns a zero vector of length n.
func Zeros(n int) *mat.VecDense {
	return mat.NewVecDense(n, nil)
}

// Biased returns a network whose output ignores its input: every hidden layer
// passes zeros and the last layer emits logits directly from its biases.
func Biased(t testing.TB, in int, logits []float64) *model.Network {
	t.Helper()
	layers := []model.Layer{
		{Weights: mat.NewDense(in, 4, nil), Biases: Zeros(4)},
		{Weights: Identity(4, 4), Biases: Zeros(4)},
		{Weights: Identity(4, 4), Biases: Zeros(4)},
		{Weights: mat.NewDense(4, len(logits), nil), Biases: mat.NewVecDense(len(logits), append([]float64(nil), logits...))},
	}
	n, err := model.New(layers)
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	return n
}

// Column sums each grid column in its first layer, passes the eleven column
// counts through two identity layers and scores class grade with the count of
// column col. A single hold in column col yields logits e_grade.
func Column(t testing.TB, col, grade int) *model.Network {
	t.Helper()
	w1 := mat.NewDense(grid.Cells, grid.Cols, nil)
	for k := 0; k < grid.Cells; k++ {
		w1.Set(k, k/grid.Rows, 1)
	}
	w4 := mat.NewDense(grid.Cols, model.NumClasses, nil)
	w4.Set(col, grade, 1)
	n, err := model.New([]model.Layer{
		{Weights: w1, Biases: Zeros(grid.Cols)},
		{Weights: Identity(grid.Cols, grid.Cols), Biases: Zeros(grid.Cols)},
		{Weights: Identity(grid.Cols, grid.Cols), Biases: Zeros(grid.Cols)},
		{Weights: w4, Biases: Zeros(model.NumClasses)},
	})
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	return n
}
