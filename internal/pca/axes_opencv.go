//go:build opencv

package pca

import (
	"errors"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// principalAxes computes the basis with OpenCV's symmetric eigen solver on
// the covariance matrix. Eigenvectors come back as rows sorted by
// descending eigenvalue, the same layout the gonum backend produces.
func principalAxes(centered *mat.Dense) (*mat.Dense, []float64, error) {
	n, d := centered.Dims()

	var cov mat.SymDense
	cov.SymOuterK(1/varianceDenominator(n), centered.T())

	src := gocv.NewMatWithSize(d, d, gocv.MatTypeCV64F)
	defer src.Close()
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			src.SetDoubleAt(i, j, cov.At(i, j))
		}
	}

	values := gocv.NewMat()
	defer values.Close()
	vectors := gocv.NewMat()
	defer vectors.Close()
	if ok := gocv.Eigen(src, &values, &vectors); !ok {
		return nil, nil, errors.New("eigen decomposition failed")
	}

	basis := mat.NewDense(d, d, nil)
	variances := make([]float64, d)
	for i := 0; i < d; i++ {
		// Rank-deficient covariance can produce tiny negative eigenvalues.
		if v := values.GetDoubleAt(i, 0); v > 0 {
			variances[i] = v
		}
		for j := 0; j < d; j++ {
			basis.Set(i, j, vectors.GetDoubleAt(i, j))
		}
	}
	return basis, variances, nil
}
