package confounds

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleTSV = "trans_x\ttrans_y\tglobal_signal\n" +
	"0.1\tn/a\t100\n" +
	"0.2\t2.0\t101\n" +
	"0.3\t4.0\tn/a\n"

func writeTSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confounds_timeseries.tsv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadTSV(t *testing.T) {
	table, err := ReadTSV(writeTSV(t, sampleTSV))
	if err != nil {
		t.Fatalf("ReadTSV: %v", err)
	}
	if table.Rows() != 3 {
		t.Errorf("rows = %d, want 3", table.Rows())
	}
	col, err := table.Column("trans_y")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(col[0]) {
		t.Errorf("expected NaN for n/a cell, got %g", col[0])
	}
	if col[1] != 2.0 || col[2] != 4.0 {
		t.Errorf("unexpected column values %v", col)
	}
}

func TestImputeMean(t *testing.T) {
	table, err := ReadTSV(writeTSV(t, sampleTSV))
	if err != nil {
		t.Fatal(err)
	}
	table.ImputeMean()

	col, _ := table.Column("trans_y")
	if col[0] != 3.0 {
		t.Errorf("imputed value = %g, want the observed mean 3", col[0])
	}
	gs, _ := table.Column("global_signal")
	if gs[2] != 100.5 {
		t.Errorf("imputed global_signal = %g, want 100.5", gs[2])
	}
	for _, c := range table.Columns {
		col, _ := table.Column(c)
		for _, v := range col {
			if math.IsNaN(v) {
				t.Fatalf("NaN left in column %s after imputation", c)
			}
		}
	}
}

func TestImputeMeanAllMissing(t *testing.T) {
	table, err := ReadTSV(writeTSV(t, "a\nn/a\nn/a\n"))
	if err != nil {
		t.Fatal(err)
	}
	table.ImputeMean()
	col, _ := table.Column("a")
	if col[0] != 0 || col[1] != 0 {
		t.Errorf("all-missing column should impute zeros, got %v", col)
	}
}

func TestPickAndDrop(t *testing.T) {
	table, err := ReadTSV(writeTSV(t, sampleTSV))
	if err != nil {
		t.Fatal(err)
	}

	picked, err := table.Pick([]string{"trans_x", "global_signal"})
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if want := []string{"trans_x", "global_signal"}; !reflect.DeepEqual(picked.Columns, want) {
		t.Errorf("picked columns = %v", picked.Columns)
	}

	if _, err := table.Pick([]string{"framewise_displacement"}); err == nil {
		t.Error("expected an error picking a missing column")
	}

	dropped := picked.Drop(GlobalSignal)
	if want := []string{"trans_x"}; !reflect.DeepEqual(dropped.Columns, want) {
		t.Errorf("columns after drop = %v", dropped.Columns)
	}
	// Dropping an absent column is a no-op.
	if got := dropped.Drop("nope"); !reflect.DeepEqual(got.Columns, dropped.Columns) {
		t.Errorf("drop of absent column changed table: %v", got.Columns)
	}
}

func TestMatrixShape(t *testing.T) {
	table, err := ReadTSV(writeTSV(t, sampleTSV))
	if err != nil {
		t.Fatal(err)
	}
	m := table.Matrix()
	rows, cols := m.Dims()
	if rows != 3 || cols != 3 {
		t.Errorf("matrix is %dx%d, want 3x3", rows, cols)
	}
	if m.At(1, 0) != 0.2 {
		t.Errorf("matrix is not volumes x regressors: at(1,0) = %g", m.At(1, 0))
	}
}

func TestDefaultList(t *testing.T) {
	names := DefaultList()
	if len(names) == 0 {
		t.Fatal("default confound list is empty")
	}
	found := false
	for _, name := range names {
		if name == GlobalSignal {
			found = true
		}
	}
	if !found {
		t.Errorf("default list %v lacks %s", names, GlobalSignal)
	}
}

func TestLoadList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "confounds.txt")
	if err := os.WriteFile(path, []byte("trans_x\n\nrot_z\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	names, err := LoadList(path)
	if err != nil {
		t.Fatalf("LoadList: %v", err)
	}
	if want := []string{"trans_x", "rot_z"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}
