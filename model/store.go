package model

import (
	iface "RouteGrader/interface"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

const (
	NumLayers  = 4
	NumClasses = 5
	InputWidth = 198
)

// Layer is one dense layer: Weights is in x out, Biases has length out.
type Layer struct {
	Weights *mat.Dense
	Biases  *mat.VecDense
}

// Network is an immutable, validated 4-layer dense network.
type Network struct {
	layers [NumLayers]Layer
	digest string
}

// file is the on-disk layout: {"weights": {"layer_1": [[...]]}, "biases": {"layer_1": [...]}}.
type file struct {
	Weights map[string][][]float64 `json:"weights"`
	Biases  map[string][]float64   `json:"biases"`
}

func layerKey(i int) string {
	return "layer_" + strconv.Itoa(i+1)
}

// Load parses and validates a serialized network.
func Load(data []byte) (*Network, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", iface.ErrModelFormat, err)
	}
	if err := checkKeys(f); err != nil {
		return nil, err
	}
	layers := make([]Layer, NumLayers)
	for i := range layers {
		key := layerKey(i)
		l, err := newLayer(key, f.Weights[key], f.Biases[key])
		if err != nil {
			return nil, err
		}
		layers[i] = l
	}
	n, err := New(layers)
	if err != nil {
		return nil, err
	}
	if n.InputWidth() != InputWidth {
		return nil, fmt.Errorf("%w: layer_1 expects %d inputs, want %d", iface.ErrModelFormat, n.InputWidth(), InputWidth)
	}
	return n, nil
}

// LoadFile reads a serialized network from disk.
func LoadFile(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	return Load(data)
}

func checkKeys(f file) error {
	want := make(map[string]bool, NumLayers)
	for i := 0; i < NumLayers; i++ {
		want[layerKey(i)] = true
	}
	for _, section := range []struct {
		name string
		keys map[string]bool
	}{
		{"weights", keySet(f.Weights)},
		{"biases", keySet(f.Biases)},
	} {
		for k := range want {
			if !section.keys[k] {
				return fmt.Errorf("%w: %s.%s is missing", iface.ErrModelFormat, section.name, k)
			}
		}
		for k := range section.keys {
			if !want[k] {
				return fmt.Errorf("%w: unexpected %s.%s", iface.ErrModelFormat, section.name, k)
			}
		}
	}
	return nil
}

// keySet keeps only non-null entries; a null layer counts as missing.
func keySet[T any](m map[string][]T) map[string]bool {
	keys := make(map[string]bool, len(m))
	for k, v := range m {
		if v != nil {
			keys[k] = true
		}
	}
	return keys
}

func newLayer(key string, weights [][]float64, biases []float64) (Layer, error) {
	rows := len(weights)
	if rows == 0 || len(weights[0]) == 0 {
		return Layer{}, fmt.Errorf("%w: %s weights are empty", iface.ErrModelFormat, key)
	}
	cols := len(weights[0])
	data := make([]float64, 0, rows*cols)
	for i, row := range weights {
		if len(row) != cols {
			return Layer{}, fmt.Errorf("%w: %s weights row %d has %d columns, want %d", iface.ErrModelFormat, key, i, len(row), cols)
		}
		data = append(data, row...)
	}
	if len(biases) == 0 {
		return Layer{}, fmt.Errorf("%w: %s biases are empty", iface.ErrModelFormat, key)
	}
	return Layer{
		Weights: mat.NewDense(rows, cols, data),
		Biases:  mat.NewVecDense(len(biases), append([]float64(nil), biases...)),
	}, nil
}

// New builds a network from in-memory layers. It checks that there are four
// layers, that widths chain and that the last layer emits NumClasses values.
// The input width is left to the caller.
func New(layers []Layer) (*Network, error) {
	if len(layers) != NumLayers {
		return nil, fmt.Errorf("%w: got %d layers, want %d", iface.ErrModelFormat, len(layers), NumLayers)
	}
	n := &Network{}
	for i, l := range layers {
		key := layerKey(i)
		if l.Weights == nil || l.Biases == nil {
			return nil, fmt.Errorf("%w: %s is missing", iface.ErrModelFormat, key)
		}
		in, out := l.Weights.Dims()
		if l.Biases.Len() != out {
			return nil, fmt.Errorf("%w: %s has %d biases for %d outputs", iface.ErrModelFormat, key, l.Biases.Len(), out)
		}
		if i > 0 {
			_, prev := layers[i-1].Weights.Dims()
			if prev != in {
				return nil, fmt.Errorf("%w: %s takes %d inputs but %s emits %d", iface.ErrModelFormat, key, in, layerKey(i-1), prev)
			}
		}
		n.layers[i] = Layer{
			Weights: mat.DenseCopyOf(l.Weights),
			Biases:  mat.VecDenseCopyOf(l.Biases),
		}
	}
	if _, out := n.layers[NumLayers-1].Weights.Dims(); out != NumClasses {
		return nil, fmt.Errorf("%w: output width %d, want %d", iface.ErrModelFormat, out, NumClasses)
	}
	encoded, err := n.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", iface.ErrModelFormat, err)
	}
	sum := md5.Sum(encoded)
	n.digest = hex.EncodeToString(sum[:])
	return n, nil
}

// Layers returns the network layers. Callers must not modify them.
func (n *Network) Layers() []Layer {
	return n.layers[:]
}

func (n *Network) InputWidth() int {
	in, _ := n.layers[0].Weights.Dims()
	return in
}

// Dims returns the layer widths from input to output, e.g. [198 64 32 16 5].
func (n *Network) Dims() []int {
	dims := []int{n.InputWidth()}
	for _, l := range n.layers {
		_, out := l.Weights.Dims()
		dims = append(dims, out)
	}
	return dims
}

// Digest identifies the network by the md5 of its canonical encoding.
func (n *Network) Digest() string {
	return n.digest
}

// Marshal encodes the network in the format accepted by Load.
func (n *Network) Marshal() ([]byte, error) {
	f := file{
		Weights: make(map[string][][]float64, NumLayers),
		Biases:  make(map[string][]float64, NumLayers),
	}
	for i, l := range n.layers {
		rows, _ := l.Weights.Dims()
		w := make([][]float64, rows)
		for r := 0; r < rows; r++ {
			w[r] = mat.Row(nil, r, l.Weights)
		}
		f.Weights[layerKey(i)] = w
		f.Biases[layerKey(i)] = mat.Col(nil, 0, l.Biases)
	}
	return json.Marshal(f)
}
