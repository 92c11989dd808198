package linalg

import (
	"math"
	"testing"
)

const tol = 1e-12

func vecClose(a, b Vec3, eps float64) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestCross(t *testing.T) {
	tests := []struct {
		name string
		a, b Vec3
		want Vec3
	}{
		{"x cross y", Vec3{1, 0, 0}, Vec3{0, 1, 0}, Vec3{0, 0, 1}},
		{"y cross z", Vec3{0, 1, 0}, Vec3{0, 0, 1}, Vec3{1, 0, 0}},
		{"parallel", Vec3{2, 0, 0}, Vec3{5, 0, 0}, Vec3{}},
		{"anticommute", Vec3{0, 1, 0}, Vec3{1, 0, 0}, Vec3{0, 0, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Cross(tt.b)
			if !vecClose(got, tt.want, tol) {
				t.Errorf("Cross() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalized(t *testing.T) {
	v := Vec3{3, 4, 0}.Normalized()
	if math.Abs(v.Norm()-1) > tol {
		t.Errorf("Normalized().Norm() = %v, want 1", v.Norm())
	}
	if z := (Vec3{}).Normalized(); z != (Vec3{}) {
		t.Errorf("Normalized() of zero = %v, want zero vector", z)
	}
}

func TestMat3MulVec(t *testing.T) {
	m := Mat3{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}} // rotate +90 about z
	got := m.MulVec(Vec3{1, 0, 0})
	if !vecClose(got, Vec3{0, 1, 0}, tol) {
		t.Errorf("MulVec() = %v, want (0,1,0)", got)
	}
}

func TestTransposeIsInverseForRotations(t *testing.T) {
	r := ExpSO3(Vec3{0.3, -0.7, 0.2})
	p := r.Mul(r.Transpose())
	id := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(p[i][j]-id[i][j]) > 1e-10 {
				t.Fatalf("R R^T [%d][%d] = %v, want %v", i, j, p[i][j], id[i][j])
			}
		}
	}
}

func TestExpSO3KnownRotation(t *testing.T) {
	// Quarter turn about z maps x to y.
	r := ExpSO3(Vec3{0, 0, math.Pi / 2})
	got := r.MulVec(Vec3{1, 0, 0})
	if !vecClose(got, Vec3{0, 1, 0}, 1e-10) {
		t.Errorf("ExpSO3 rotated x = %v, want (0,1,0)", got)
	}
}

func TestExpSO3SmallAngle(t *testing.T) {
	phi := Vec3{1e-10, 0, 0}
	r := ExpSO3(phi)
	if !r.IsFinite() {
		t.Fatal("ExpSO3 of tiny rotation is not finite")
	}
	got := r.MulVec(Vec3{0, 1, 0})
	// First order: y picks up a z component of |phi|.
	if math.Abs(got.Z-1e-10) > 1e-16 {
		t.Errorf("small-angle rotation z component = %v, want ~1e-10", got.Z)
	}
}

func TestLogExpRoundTrip(t *testing.T) {
	tests := []Vec3{
		{0.5, 0, 0},
		{0, -1.2, 0.4},
		{0.01, 0.02, -0.03},
		{0, 0, 2.5},
		{1e-9, -2e-9, 0},
	}
	for _, phi := range tests {
		got := LogSO3(ExpSO3(phi))
		if !vecClose(got, phi, 1e-9) {
			t.Errorf("LogSO3(ExpSO3(%v)) = %v", phi, got)
		}
	}
}

func TestFrame(t *testing.T) {
	t.Run("orthonormal rows", func(t *testing.T) {
		f, err := Frame(Vec3{0, 0, 2}, Vec3{1, 0, 1})
		if err != nil {
			t.Fatalf("Frame() error = %v", err)
		}
		for i := 0; i < 3; i++ {
			if math.Abs(f.Row(i).Norm()-1) > tol {
				t.Errorf("row %d norm = %v, want 1", i, f.Row(i).Norm())
			}
		}
		if math.Abs(f.Row(0).Dot(f.Row(2))) > tol {
			t.Errorf("d1.d3 = %v, want 0", f.Row(0).Dot(f.Row(2)))
		}
		if !vecClose(f.Row(1), f.Row(2).Cross(f.Row(0)), tol) {
			t.Error("d2 != d3 x d1")
		}
	})
	t.Run("parallel inputs", func(t *testing.T) {
		if _, err := Frame(Vec3{0, 0, 1}, Vec3{0, 0, 3}); err == nil {
			t.Error("Frame() with parallel inputs: want error")
		}
	})
	t.Run("zero tangent", func(t *testing.T) {
		if _, err := Frame(Vec3{}, Vec3{1, 0, 0}); err == nil {
			t.Error("Frame() with zero tangent: want error")
		}
	})
}
