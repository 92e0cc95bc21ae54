// Package parcellation reduces voxel-level BOLD signal to per-region
// average time series using a labeled atlas volume, with optional
// confound regression.
package parcellation

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/victoris93/neuroconn/internal/confounds"
)

// Image is a 4-D voxel volume. 3-D volumes report a single time point.
type Image interface {
	Dims() (nx, ny, nz, nt int)
	At(x, y, z, t int) float64
}

// Voxel identifies one position in a volume.
type Voxel struct {
	X, Y, Z int
}

// Masker averages voxel signal within atlas labels.
type Masker struct {
	workers int
}

// NewMasker returns a Masker fanning out over all CPUs.
func NewMasker() *Masker {
	return &Masker{workers: runtime.NumCPU()}
}

// Labels returns the sorted distinct nonzero labels of an atlas volume.
// Label 0 is background.
func Labels(atlas Image) []int {
	buckets := bucketVoxels(atlas)
	labels := make([]int, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}

// bucketVoxels groups voxel positions by their atlas label.
func bucketVoxels(atlas Image) map[int][]Voxel {
	nx, ny, nz, _ := atlas.Dims()
	buckets := make(map[int][]Voxel)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				label := int(math.Round(atlas.At(x, y, z, 0)))
				if label == 0 {
					continue
				}
				buckets[label] = append(buckets[label], Voxel{x, y, z})
			}
		}
	}
	return buckets
}

// Transform extracts the volumes x parcels mean time series of a BOLD
// run under an atlas, then residualizes each parcel series against the
// confound columns when a table is given. Parcel order follows
// ascending label value.
func (m *Masker) Transform(bold, atlas Image, conf *confounds.Table) (*mat.Dense, error) {
	bx, by, bz, nt := bold.Dims()
	ax, ay, az, _ := atlas.Dims()
	if bx != ax || by != ay || bz != az {
		return nil, fmt.Errorf("bold volume is %dx%dx%d but atlas is %dx%dx%d", bx, by, bz, ax, ay, az)
	}

	buckets := bucketVoxels(atlas)
	labels := make([]int, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	if len(labels) == 0 {
		return nil, fmt.Errorf("atlas contains no nonzero labels")
	}

	ts := mat.NewDense(nt, len(labels), nil)

	order := make(chan int, m.workers)
	var wg sync.WaitGroup

	wg.Add(len(labels))

	for i := 0; i < m.workers; i++ {
		go func() {
			for index := range order {
				voxels := buckets[labels[index]]
				for t := 0; t < nt; t++ {
					var acc float64
					for _, v := range voxels {
						acc += bold.At(v.X, v.Y, v.Z, t)
					}
					ts.Set(t, index, acc/float64(len(voxels)))
				}
				wg.Done()
			}
		}()
	}

	for i := range labels {
		order <- i
	}

	wg.Wait()
	close(order)

	if conf == nil {
		return ts, nil
	}
	return RegressConfounds(ts, conf)
}

// RegressConfounds residualizes each parcel series against the confound
// columns by ordinary least squares, intercept included.
func RegressConfounds(ts *mat.Dense, conf *confounds.Table) (*mat.Dense, error) {
	volumes, parcels := ts.Dims()
	if conf.Rows() != volumes {
		return nil, fmt.Errorf("confound table has %d rows but series has %d volumes", conf.Rows(), volumes)
	}

	regressors := conf.Matrix()
	_, k := regressors.Dims()
	design := mat.NewDense(volumes, k+1, nil)
	for i := 0; i < volumes; i++ {
		design.Set(i, 0, 1)
	}
	design.Slice(0, volumes, 1, k+1).(*mat.Dense).Copy(regressors)

	var beta mat.Dense
	if err := beta.Solve(design, ts); err != nil {
		return nil, fmt.Errorf("confound regression: %w", err)
	}

	var fitted mat.Dense
	fitted.Mul(design, &beta)
	residual := mat.NewDense(volumes, parcels, nil)
	residual.Sub(ts, &fitted)
	return residual, nil
}
