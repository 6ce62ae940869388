//go:build !opencv

package pca

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// principalAxes returns the full square basis of right singular vectors of
// the centered data (one per row, by descending singular value) and the
// variance explained by each.
func principalAxes(centered *mat.Dense) (*mat.Dense, []float64, error) {
	n, d := centered.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDFull); !ok {
		return nil, nil, errors.New("singular value decomposition did not converge")
	}

	var v mat.Dense
	svd.VTo(&v)
	basis := mat.DenseCopyOf(v.T())

	denom := varianceDenominator(n)
	variances := make([]float64, d)
	for i, s := range svd.Values(nil) {
		variances[i] = s * s / denom
	}
	return basis, variances, nil
}
