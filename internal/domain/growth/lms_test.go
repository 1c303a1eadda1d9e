package growth

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Weight-for-age, boys, 12 months.
var boys12m = LMS{L: 0.1395, M: 9.6479, S: 0.10925}

func TestZFromValue(t *testing.T) {
	t.Parallel() // Enable parallel execution

	testCases := []struct {
		name     string
		x        float64
		p        LMS
		expected float64
	}{
		{"power form", 11, LMS{L: 1, M: 10, S: 0.1}, 1.0},
		{"exponential form", 10 * math.Exp(0.1), LMS{L: 0, M: 10, S: 0.1}, 1.0},
		{"median is zero", 9.6479, boys12m, 0.0},
		{"tiny lambda uses exponential form", 10 * math.Exp(-0.2), LMS{L: 1e-12, M: 10, S: 0.1}, -2.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			z, err := ZFromValue(tc.x, tc.p)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, z, 1e-9)
		})
	}
}

func TestZFromValueRejectsBadInput(t *testing.T) {
	t.Parallel() // Enable parallel execution

	_, err := ZFromValue(0, boys12m)
	assert.True(t, errors.Is(err, ErrOutOfDomain))

	_, err = ZFromValue(-3, boys12m)
	assert.True(t, errors.Is(err, ErrOutOfDomain))

	_, err = ZFromValue(math.NaN(), boys12m)
	assert.True(t, errors.Is(err, ErrOutOfDomain))

	_, err = ZFromValue(10, LMS{L: 1, M: 0, S: 0.1})
	assert.True(t, errors.Is(err, ErrOutOfDomain))
}

func TestValueFromZOutOfDomain(t *testing.T) {
	t.Parallel() // Enable parallel execution

	// 1 + L*S*z = 1 + 2*0.2*(-3) = -0.2
	v, err := ValueFromZ(-3, LMS{L: 2, M: 10, S: 0.2})
	assert.True(t, errors.Is(err, ErrOutOfDomain))
	assert.Zero(t, v)

	// Exactly zero base has no solution either.
	_, err = ValueFromZ(-2.5, LMS{L: 2, M: 10, S: 0.2})
	assert.True(t, errors.Is(err, ErrOutOfDomain))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel() // Enable parallel execution

	params := []LMS{
		boys12m,
		{L: 1, M: 75.7, S: 0.03},
		{L: -0.3521, M: 15.9, S: 0.0806},
		{L: 0, M: 12.1, S: 0.11},
	}

	for _, p := range params {
		for z := -3.0; z <= 3.0; z += 0.25 {
			v, err := ValueFromZ(z, p)
			require.NoError(t, err)
			require.Greater(t, v, 0.0)

			back, err := ZFromValue(v, p)
			require.NoError(t, err)
			assert.InDelta(t, z, back, 1e-9, "L=%g M=%g S=%g z=%g", p.L, p.M, p.S, z)
		}
	}
}

func TestBoundaries(t *testing.T) {
	t.Parallel() // Enable parallel execution

	bs, err := Boundaries(boys12m, StandardZPoints)
	require.NoError(t, err)
	require.Len(t, bs, len(StandardZPoints))

	for i, b := range bs {
		assert.Equal(t, StandardZPoints[i], b.Z)
		require.NotNil(t, b.Value)
		assert.False(t, b.OutOfDomain)
		if i > 0 {
			assert.Greater(t, *b.Value, *bs[i-1].Value, "boundaries must increase with z")
		}
	}
	assert.InDelta(t, boys12m.M, *bs[2].Value, 1e-12)

	// Points without a solution are flagged, not dropped.
	bs, err = Boundaries(LMS{L: 2, M: 10, S: 0.2}, []float64{-3, 0})
	require.NoError(t, err)
	require.Len(t, bs, 2)
	assert.True(t, bs[0].OutOfDomain)
	assert.Nil(t, bs[0].Value)
	assert.False(t, bs[1].OutOfDomain)

	_, err = Boundaries(LMS{L: 1, M: -1, S: 0.1}, StandardZPoints)
	assert.True(t, errors.Is(err, ErrOutOfDomain))
}

func TestPercentile(t *testing.T) {
	t.Parallel() // Enable parallel execution

	assert.InDelta(t, 50.0, Percentile(0), 1e-9)
	assert.InDelta(t, 97.72, Percentile(2), 0.01)
	assert.InDelta(t, 2.28, Percentile(-2), 0.01)
	assert.InDelta(t, 84.13, Percentile(1), 0.01)
}

func TestGradientColor(t *testing.T) {
	t.Parallel() // Enable parallel execution

	assert.Equal(t, "#ff0000", GradientColor(-3))
	assert.Equal(t, "#ff0000", GradientColor(-4.2))
	assert.Equal(t, "#ff0000", GradientColor(3.5))
	assert.Equal(t, "#00ff00", GradientColor(0))
	assert.Equal(t, ColorNeutral, GradientColor(math.NaN()))

	assert.NotEqual(t, GradientColor(-1.3), GradientColor(-2.6))
	assert.NotEqual(t, GradientColor(-1.3), GradientColor(0))
}
