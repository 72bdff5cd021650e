package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// KalmanFilter is a constant velocity Kalman filter over the 8 dimensional
// state (x, y, a, h, vx, vy, va, vh) where (x, y) is the box center, a the
// aspect ratio and h the height.  Only (x, y, a, h) is observed.
type KalmanFilter struct {
	stdWeightPosition float64
	stdWeightVelocity float64
	motionMat         *mat.Dense
	updateMat         *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter
func NewKalmanFilter(stdWeightPosition, stdWeightVelocity float64) *KalmanFilter {

	// motion model is identity plus unit time step on the velocity terms
	motionMat := mat.NewDense(8, 8, nil)

	for i := 0; i < 8; i++ {
		motionMat.Set(i, i, 1)
	}

	for i := 0; i < 4; i++ {
		motionMat.Set(i, 4+i, 1)
	}

	// observation model picks the first four state values
	updateMat := mat.NewDense(4, 8, nil)

	for i := 0; i < 4; i++ {
		updateMat.Set(i, i, 1)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// diag returns a square matrix with the squares of std on its diagonal
func diag(std []float64) *mat.Dense {
	d := mat.NewDense(len(std), len(std), nil)

	for i, v := range std {
		d.Set(i, i, v*v)
	}

	return d
}

// Initiate creates the state mean and covariance for an unassociated
// measurement.  Velocities start at zero.
func (kf *KalmanFilter) Initiate(measurement Xyah) (*mat.VecDense, *mat.Dense) {

	mean := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		mean.SetVec(i, measurement[i])
	}

	h := measurement[3]
	pos := 2 * kf.stdWeightPosition * h
	vel := 10 * kf.stdWeightVelocity * h

	cov := diag([]float64{pos, pos, 1e-2, pos, vel, vel, 1e-5, vel})

	return mean, cov
}

// Predict runs the prediction step, updating mean and covariance in place
func (kf *KalmanFilter) Predict(mean *mat.VecDense, cov *mat.Dense) {

	h := mean.AtVec(3)
	pos := kf.stdWeightPosition * h
	vel := kf.stdWeightVelocity * h

	motionCov := diag([]float64{pos, pos, 1e-2, pos, vel, vel, 1e-5, vel})

	var next mat.VecDense
	next.MulVec(kf.motionMat, mean)
	mean.CopyVec(&next)

	// P' = F P F^T + Q
	var fp, fpf mat.Dense
	fp.Mul(kf.motionMat, cov)
	fpf.Mul(&fp, kf.motionMat.T())
	fpf.Add(&fpf, motionCov)
	cov.Copy(&fpf)
}

// project maps the state distribution into measurement space
func (kf *KalmanFilter) project(mean *mat.VecDense, cov *mat.Dense) (*mat.VecDense, *mat.SymDense) {

	h := mean.AtVec(3)
	pos := kf.stdWeightPosition * h

	var projMean mat.VecDense
	projMean.MulVec(kf.updateMat, mean)

	var hp, hph mat.Dense
	hp.Mul(kf.updateMat, cov)
	hph.Mul(&hp, kf.updateMat.T())

	innovation := []float64{pos, pos, 1e-1, pos}
	projCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			v := hph.At(i, j)
			if i == j {
				v += innovation[i] * innovation[i]
			}
			projCov.SetSym(i, j, v)
		}
	}

	return &projMean, projCov
}

// Update runs the correction step with a new measurement, updating mean and
// covariance in place
func (kf *KalmanFilter) Update(mean *mat.VecDense, cov *mat.Dense, measurement Xyah) error {

	projMean, projCov := kf.project(mean, cov)

	var chol mat.Cholesky

	if ok := chol.Factorize(projCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// solve S K^T = (P H^T)^T for the kalman gain
	var pht mat.Dense
	pht.Mul(cov, kf.updateMat.T())

	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, pht.T()); err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	innovation := mat.NewVecDense(4, nil)

	for i := 0; i < 4; i++ {
		innovation.SetVec(i, measurement[i]-projMean.AtVec(i))
	}

	var correction mat.VecDense
	correction.MulVec(gainT.T(), innovation)
	mean.AddVec(mean, &correction)

	// P' = P - K S K^T
	var ks, ksk mat.Dense
	ks.Mul(gainT.T(), projCov)
	ksk.Mul(&ks, &gainT)
	cov.Sub(cov, &ksk)

	return nil
}
