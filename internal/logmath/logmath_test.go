package logmath

import (
	"math"
	"testing"
)

func TestLogAdd(t *testing.T) {
	// log(exp(log(2)) + exp(log(3))) = log(5)
	got := LogAdd(math.Log(2), math.Log(3))
	want := math.Log(5)
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("LogAdd(log(2), log(3)) = %f, want %f", got, want)
	}
}

func TestLogAddWithLogZero(t *testing.T) {
	a := math.Log(5)
	if got := LogAdd(LogZero, a); math.Abs(got-a) > 1e-10 {
		t.Errorf("LogAdd(LogZero, %f) = %f, want %f", a, got, a)
	}
	if got := LogAdd(a, LogZero); math.Abs(got-a) > 1e-10 {
		t.Errorf("LogAdd(%f, LogZero) = %f, want %f", a, got, a)
	}
}

func TestLogSoftmaxNormalizes(t *testing.T) {
	row := []float64{math.Log(0.2), math.Log(0.3), math.Log(0.1)}
	out, ok := LogSoftmax(row)
	if !ok {
		t.Fatal("expected valid distribution")
	}
	var sum float64
	for _, v := range out {
		sum += math.Exp(v)
	}
	if math.Abs(sum-1.0) > 1e-10 {
		t.Errorf("renormalized row sums to %f, want 1", sum)
	}
}

func TestLogSoftmaxUnderflow(t *testing.T) {
	row := []float64{LogZero, LogZero, LogZero}
	if _, ok := LogSoftmax(row); ok {
		t.Error("expected underflow for all-LogZero row")
	}
}

func TestArgmax(t *testing.T) {
	if got := Argmax([]float64{-3, -1, -2}); got != 1 {
		t.Errorf("Argmax = %d, want 1", got)
	}
	if got := Argmax(nil); got != -1 {
		t.Errorf("Argmax(nil) = %d, want -1", got)
	}
}
