// Package connectivity computes functional connectivity matrices:
// Pearson correlation between parcel time series, optional Fisher
// z-transformation, and optional concatenation across sessions.
package connectivity

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

type statistic struct {
	avg float64
	std float64
}

func getStat(ts *mat.Dense, stats []statistic, order <-chan int, wg *sync.WaitGroup) {
	volumes, _ := ts.Dims()

	for index := range order {
		var accVal float64
		var accSqrVal float64

		for t := 0; t < volumes; t++ {
			value := ts.At(t, index)
			accVal += value
			accSqrVal += value * value
		}

		avgVal := accVal / float64(volumes)
		avgSqrVal := accSqrVal / float64(volumes)

		stats[index].avg = avgVal
		stats[index].std = math.Sqrt(avgSqrVal - (avgVal * avgVal))

		wg.Done()
	}
}

func pearson(ts *mat.Dense, conn *mat.Dense, stats []statistic, order <-chan int, wg *sync.WaitGroup) {
	volumes, parcels := ts.Dims()

	for from := range order {
		for to := from; to < parcels; to++ {
			var r float64
			if to == from {
				// Self-correlation is exactly 1 unless the parcel has no
				// variance; rounding in the quotient must not leak through
				// the later atanh.
				r = 1
				if stats[from].std == 0 {
					r = math.NaN()
				}
			} else if stats[from].std == 0 || stats[to].std == 0 {
				r = math.NaN()
			} else {
				var accProd float64
				for t := 0; t < volumes; t++ {
					accProd += ts.At(t, from) * ts.At(t, to)
				}

				cov := (accProd / float64(volumes)) - (stats[from].avg * stats[to].avg)
				r = cov / (stats[from].std * stats[to].std)
				if r > 1 {
					r = 1
				} else if r < -1 {
					r = -1
				}
			}

			conn.Set(from, to, r)
			conn.Set(to, from, r)
		}

		wg.Done()
	}
}

// Matrix computes the parcels x parcels Pearson correlation matrix of a
// volumes x parcels time series. A zero-variance parcel yields NaN in
// its row and column.
func Matrix(ts *mat.Dense) *mat.Dense {
	_, parcels := ts.Dims()
	conn := mat.NewDense(parcels, parcels, nil)
	workers := runtime.NumCPU()

	stats := make([]statistic, parcels)

	{ // Get statistics for each parcel timeseries
		order := make(chan int, workers)
		var wg sync.WaitGroup

		wg.Add(parcels)

		for i := 0; i < workers; i++ {
			go getStat(ts, stats, order, &wg)
		}

		for i := 0; i < parcels; i++ {
			order <- i
		}

		wg.Wait()
		close(order)
	}

	{ // Calculate Pearson's correlation
		order := make(chan int, workers)
		var wg sync.WaitGroup

		wg.Add(parcels)

		for i := 0; i < workers; i++ {
			go pearson(ts, conn, stats, order, &wg)
		}

		for i := 0; i < parcels; i++ {
			order <- i
		}

		wg.Wait()
		close(order)
	}

	return conn
}

// Matrices computes one correlation matrix per session.
func Matrices(sessions []*mat.Dense) []*mat.Dense {
	matrices := make([]*mat.Dense, len(sessions))
	for i, ts := range sessions {
		matrices[i] = Matrix(ts)
	}
	return matrices
}

// Concat row-stacks the sessions' time series and correlates the
// result once, so every session contributes every volume to a single
// matrix.
func Concat(sessions []*mat.Dense) (*mat.Dense, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions to concatenate")
	}
	stacked := sessions[0]
	for i, ts := range sessions[1:] {
		_, parcels := stacked.Dims()
		_, next := ts.Dims()
		if parcels != next {
			return nil, fmt.Errorf("session %d has %d parcels, want %d", i+1, next, parcels)
		}
		var grown mat.Dense
		grown.Stack(stacked, ts)
		stacked = &grown
	}
	return Matrix(stacked), nil
}
