// Package npyio persists matrices and session stacks as numpy .npy
// files, the interchange format of the pipeline's artifacts.
package npyio

import (
	"fmt"

	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"
)

func flatten(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data
	}
	flat := make([]float64, 0, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		flat = append(flat, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols]...)
	}
	return flat
}

// WriteMatrix writes a matrix to a .npy file with shape (rows, cols).
func WriteMatrix(path string, m *mat.Dense) error {
	rows, cols := m.Dims()

	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w.Shape = []int{rows, cols}
	w.Version = 2
	if err := w.WriteFloat64(flatten(m)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadMatrix reads a 2-D .npy file into a matrix.
func ReadMatrix(path string) (*mat.Dense, error) {
	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if len(r.Shape) != 2 {
		return nil, fmt.Errorf("%s: expected 2 dimensions, got %d", path, len(r.Shape))
	}
	data, err := r.GetFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return mat.NewDense(r.Shape[0], r.Shape[1], data), nil
}

// WriteStack writes same-shaped matrices to a .npy file with shape
// (sessions, rows, cols).
func WriteStack(path string, stack []*mat.Dense) error {
	if len(stack) == 0 {
		return fmt.Errorf("writing %s: empty stack", path)
	}
	rows, cols := stack[0].Dims()
	flat := make([]float64, 0, len(stack)*rows*cols)
	for i, m := range stack {
		r, c := m.Dims()
		if r != rows || c != cols {
			return fmt.Errorf("writing %s: matrix %d is %dx%d, want %dx%d", path, i, r, c, rows, cols)
		}
		flat = append(flat, flatten(m)...)
	}

	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w.Shape = []int{len(stack), rows, cols}
	w.Version = 2
	if err := w.WriteFloat64(flat); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadStack reads a 2-D or 3-D .npy file as a list of matrices. A 2-D
// file yields a single-element stack.
func ReadStack(path string) ([]*mat.Dense, error) {
	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	data, err := r.GetFloat64()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	switch len(r.Shape) {
	case 2:
		return []*mat.Dense{mat.NewDense(r.Shape[0], r.Shape[1], data)}, nil
	case 3:
		sessions, rows, cols := r.Shape[0], r.Shape[1], r.Shape[2]
		stack := make([]*mat.Dense, sessions)
		for i := 0; i < sessions; i++ {
			chunk := data[i*rows*cols : (i+1)*rows*cols]
			stack[i] = mat.NewDense(rows, cols, chunk)
		}
		return stack, nil
	default:
		return nil, fmt.Errorf("%s: expected 2 or 3 dimensions, got %d", path, len(r.Shape))
	}
}
