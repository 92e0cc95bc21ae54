package connectivity

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// nanSentinel replaces NaN entries after the z-transform, so downstream
// consumers never see missing values.
const nanSentinel = 1e-10

// infSentinel replaces infinite entries after the z-transform. Perfect
// correlations (the diagonal included) map to infinity under atanh.
const infSentinel = 1

// FisherZ applies Fisher's z-transform (inverse hyperbolic tangent)
// elementwise and sanitizes the result: NaN becomes 1e-10 and infinity
// of either sign becomes 1. The output is finite for any input with
// entries in [-1, 1].
func FisherZ(conn *mat.Dense) *mat.Dense {
	rows, cols := conn.Dims()
	z := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := math.Atanh(conn.At(i, j))
			switch {
			case math.IsNaN(v):
				v = nanSentinel
			case math.IsInf(v, 0):
				v = infSentinel
			}
			z.Set(i, j, v)
		}
	}
	return z
}
