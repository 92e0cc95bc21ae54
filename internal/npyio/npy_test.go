package npyio

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMatrixRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conn-matrix.npy")
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	if err := WriteMatrix(path, m); err != nil {
		t.Fatalf("WriteMatrix: %v", err)
	}
	got, err := ReadMatrix(path)
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	if !mat.Equal(m, got) {
		t.Errorf("read back %v, want %v", mat.Formatted(got), mat.Formatted(m))
	}
}

func TestWriteMatrixFlattensViews(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.npy")
	base := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			base.Set(i, j, float64(4*i+j))
		}
	}
	view := base.Slice(1, 3, 1, 3).(*mat.Dense)

	if err := WriteMatrix(path, view); err != nil {
		t.Fatalf("WriteMatrix: %v", err)
	}
	got, err := ReadMatrix(path)
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	if !mat.Equal(view, got) {
		t.Errorf("sliced view written incorrectly: got %v", mat.Formatted(got))
	}
}

func TestStackRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean-ts.npy")
	stack := []*mat.Dense{
		mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		mat.NewDense(2, 2, []float64{5, 6, 7, 8}),
	}

	if err := WriteStack(path, stack); err != nil {
		t.Fatalf("WriteStack: %v", err)
	}
	got, err := ReadStack(path)
	if err != nil {
		t.Fatalf("ReadStack: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d sessions, want 2", len(got))
	}
	for i := range stack {
		if !mat.Equal(stack[i], got[i]) {
			t.Errorf("session %d mismatch", i)
		}
	}
}

func TestReadStackAcceptsTwoDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.npy")
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	if err := WriteMatrix(path, m); err != nil {
		t.Fatal(err)
	}
	got, err := ReadStack(path)
	if err != nil {
		t.Fatalf("ReadStack: %v", err)
	}
	if len(got) != 1 || !mat.Equal(m, got[0]) {
		t.Error("2-D file should read as a single-session stack")
	}
}

func TestWriteStackRejectsMixedShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.npy")
	err := WriteStack(path, []*mat.Dense{
		mat.NewDense(2, 2, nil),
		mat.NewDense(3, 2, nil),
	})
	if err == nil {
		t.Fatal("expected an error for mixed session shapes")
	}
	if err := WriteStack(path, nil); err == nil {
		t.Fatal("expected an error for an empty stack")
	}
}
