package tracker

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func diagDense(v ...float64) *mat.Dense {
	d := mat.NewDense(len(v), len(v), nil)
	for i := range v {
		d.Set(i, i, v[i])
	}
	return d
}

// TestKalmanFilter checks one initiate, predict and update cycle against
// precomputed values
func TestKalmanFilter(t *testing.T) {
	kf := NewKalmanFilter(1.0/20, 1.0/160)

	mean, cov := kf.Initiate(Xyah{100, 200, 1, 50})

	expectMean := mat.NewVecDense(8, []float64{100, 200, 1, 50, 0, 0, 0, 0})
	expectCov := diagDense(25, 25, 1e-4, 25, 9.765625, 9.765625, 1e-10, 9.765625)

	if !mat.EqualApprox(mean, expectMean, 1e-4) {
		t.Errorf("initiate: expected mean %v, got %v", mat.Formatted(expectMean.T()), mat.Formatted(mean.T()))
	}

	if !mat.EqualApprox(cov, expectCov, 1e-4) {
		t.Errorf("initiate: expected covariance\n%v\ngot\n%v", mat.Formatted(expectCov), mat.Formatted(cov))
	}

	kf.Predict(mean, cov)

	expectCov = mat.NewDense(8, 8, []float64{
		41.015625, 0, 0, 0, 9.765625, 0, 0, 0,
		0, 41.015625, 0, 0, 0, 9.765625, 0, 0,
		0, 0, 0.0002, 0, 0, 0, 1e-10, 0,
		0, 0, 0, 41.015625, 0, 0, 0, 9.765625,
		9.765625, 0, 0, 0, 9.86328125, 0, 0, 0,
		0, 9.765625, 0, 0, 0, 9.86328125, 0, 0,
		0, 0, 1e-10, 0, 0, 0, 2e-10, 0,
		0, 0, 0, 9.765625, 0, 0, 0, 9.86328125,
	})

	if !mat.EqualApprox(mean, expectMean, 1e-4) {
		t.Errorf("predict: expected mean %v, got %v", mat.Formatted(expectMean.T()), mat.Formatted(mean.T()))
	}

	if !mat.EqualApprox(cov, expectCov, 1e-4) {
		t.Errorf("predict: expected covariance\n%v\ngot\n%v", mat.Formatted(expectCov), mat.Formatted(cov))
	}

	if err := kf.Update(mean, cov, Xyah{105, 205, 1.1, 55}); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	expectMean = mat.NewVecDense(8, []float64{
		104.338844, 204.338843, 1.001961, 54.338844, 1.033058, 1.033058, 0, 1.033058,
	})
	expectCov = mat.NewDense(8, 8, []float64{
		5.423553719, 0, 0, 0, 1.291322314, 0, 0, 0,
		0, 5.423553719, 0, 0, 0, 1.291322314, 0, 0,
		0, 0, 0.000196078, 0, 0, 0, 9.8039e-11, 0,
		0, 0, 0, 5.423553719, 0, 0, 0, 1.291322314,
		1.291322314, 0, 0, 0, 7.845590134, 0, 0, 0,
		0, 1.291322314, 0, 0, 0, 7.845590134, 0, 0,
		0, 0, 9.8039e-11, 0, 0, 0, 2e-10, 0,
		0, 0, 0, 1.291322314, 0, 0, 0, 7.845590134,
	})

	if !mat.EqualApprox(mean, expectMean, 1e-4) {
		t.Errorf("update: expected mean %v, got %v", mat.Formatted(expectMean.T()), mat.Formatted(mean.T()))
	}

	if !mat.EqualApprox(cov, expectCov, 1e-4) {
		t.Errorf("update: expected covariance\n%v\ngot\n%v", mat.Formatted(expectCov), mat.Formatted(cov))
	}
}

func TestRectXyahRoundTrip(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 40, H: 100}
	back := RectFromXyah(r.Xyah())

	got := []float64{float64(back.X), float64(back.Y), float64(back.W), float64(back.H)}
	want := []float64{10, 20, 40, 100}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-4 {
			t.Errorf("expected %+v, got %+v", r, back)
			break
		}
	}

	if iou := r.IoU(r); iou != 1 {
		t.Errorf("expected self IoU of 1, got %f", iou)
	}

	if iou := r.IoU(Rect{X: 500, Y: 500, W: 10, H: 10}); iou != 0 {
		t.Errorf("expected disjoint IoU of 0, got %f", iou)
	}
}
