package distance

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walk-router/internal/models"
	"walk-router/internal/testutil"
)

func TestGetDistance_SamePointIsZero(t *testing.T) {
	paths := testutil.NewMockPathFinder()
	calc := NewGraphCalculator(paths, DefaultWalkingSpeed)
	p := models.Coordinates{Lat: 1.000001, Lng: 2}

	res, err := calc.GetDistance(context.Background(), p, models.Coordinates{Lat: 1, Lng: 2})

	require.NoError(t, err)
	assert.Equal(t, 0.0, res.DistanceMeters)
	assert.Equal(t, 0, paths.CallCount())
}

func TestGetDistance_MemoizesPairs(t *testing.T) {
	paths := testutil.NewMockPathFinder()
	calc := NewGraphCalculator(paths, 2)
	a := models.Coordinates{Lat: 0, Lng: 0}
	b := models.Coordinates{Lat: 0, Lng: 0.01}

	first, err := calc.GetDistance(context.Background(), a, b)
	require.NoError(t, err)
	second, err := calc.GetDistance(context.Background(), a, b)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.InDelta(t, 1110, first.DistanceMeters, 1e-6)
	assert.InDelta(t, 555, first.DurationSecs, 1e-6)
	assert.Equal(t, 1, paths.CallCount())
	assert.Equal(t, 1, calc.CacheSize())
}

func TestGetDistance_Unreachable(t *testing.T) {
	paths := testutil.NewMockPathFinder()
	a := models.Coordinates{Lat: 0, Lng: 0}
	b := models.Coordinates{Lat: 0, Lng: 0.01}
	paths.SetDistance(a, b, math.Inf(1))
	calc := NewGraphCalculator(paths, DefaultWalkingSpeed)

	res, err := calc.GetDistance(context.Background(), a, b)

	require.NoError(t, err)
	assert.False(t, res.Reachable())
	assert.True(t, math.IsInf(res.DurationSecs, 1))
}

func TestGetDistance_FailedQuery(t *testing.T) {
	calc := NewGraphCalculator(testutil.NewMockPathFinder(), DefaultWalkingSpeed)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := calc.GetDistance(ctx, models.Coordinates{}, models.Coordinates{Lat: 1})

	var failed *ErrDistanceCalculationFailed
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, models.Coordinates{Lat: 1}, failed.Dest)
}

func TestAllowTechnicalFrom(t *testing.T) {
	paths := testutil.NewMockPathFinder()
	calc := NewGraphCalculator(paths, DefaultWalkingSpeed)
	user := models.Coordinates{Lat: 0, Lng: 0}
	region := models.Coordinates{Lat: 0.001, Lng: 0}
	calc.AllowTechnicalFrom(user)

	_, err := calc.GetDistance(context.Background(), user, region)
	require.NoError(t, err)
	_, err = calc.GetDistance(context.Background(), region, user)
	require.NoError(t, err)

	require.Len(t, paths.Calls, 2)
	assert.True(t, paths.Calls[0].TechnicalAllowedAtStart)
	assert.False(t, paths.Calls[1].TechnicalAllowedAtStart)
}

func TestGetDistanceMatrix(t *testing.T) {
	paths := testutil.NewMockPathFinder()
	calc := NewGraphCalculator(paths, DefaultWalkingSpeed)
	points := []models.Coordinates{
		{Lat: 0, Lng: 0},
		{Lat: 0.1, Lng: 0},
		{Lat: 0, Lng: 0.1},
	}

	matrix, err := calc.GetDistanceMatrix(context.Background(), points)

	require.NoError(t, err)
	require.Len(t, matrix, 3)
	for i := range points {
		assert.Equal(t, 0.0, matrix[i][i].DistanceMeters)
	}
	assert.InDelta(t, 11100, matrix[0][1].DistanceMeters, 1e-6)
	assert.InDelta(t, matrix[1][2].DistanceMeters, matrix[2][1].DistanceMeters, 1e-9)
	assert.Equal(t, 6, paths.CallCount())

	require.NoError(t, calc.PrewarmCache(context.Background(), points))
	assert.Equal(t, 6, paths.CallCount(), "prewarm reuses memoized pairs")

	fromFirst, err := calc.GetDistancesFromPoint(context.Background(), points[0], points[1:])
	require.NoError(t, err)
	assert.Equal(t, []DistanceResult{matrix[0][1], matrix[0][2]}, fromFirst)
}

func TestPathReturnsRoutePoints(t *testing.T) {
	calc := NewGraphCalculator(testutil.NewMockPathFinder(), DefaultWalkingSpeed)
	a := models.Coordinates{Lat: 0, Lng: 0}
	b := models.Coordinates{Lat: 0.001, Lng: 0.001}

	path, res, err := calc.Path(context.Background(), a, b)

	require.NoError(t, err)
	assert.Equal(t, []models.Coordinates{a, b}, path)
	assert.True(t, res.Reachable())
}
