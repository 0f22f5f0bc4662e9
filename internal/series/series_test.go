package series

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/hedgehub/internal/errs"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestAlignIntersectsAndSorts(t *testing.T) {
	a := []Observation{
		{Time: day(3), Price: 13},
		{Time: day(1), Price: 11},
		{Time: day(2), Price: 12},
		{Time: day(5), Price: 15},
	}
	b := []Observation{
		{Time: day(2), Price: 22},
		{Time: day(1), Price: 21},
		{Time: day(3), Price: 23},
		{Time: day(4), Price: 24},
	}

	aligned, err := Align("AAA", a, "BBB", b)
	require.NoError(t, err)

	assert.Equal(t, 3, aligned.Len())
	assert.Equal(t, []float64{11, 12, 13}, aligned.PricesA())
	assert.Equal(t, []float64{21, 22, 23}, aligned.PricesB())
	assert.Equal(t, "AAA", aligned.TickerA())
	assert.Equal(t, "BBB", aligned.TickerB())

	times := aligned.Times()
	for i := 1; i < len(times); i++ {
		assert.True(t, times[i].After(times[i-1]), "timestamps must be strictly increasing")
	}
}

func TestAlignDropsInvalidRows(t *testing.T) {
	a := []Observation{
		{Time: day(1), Price: 10},
		{Time: day(2), Price: 0},
		{Time: day(3), Price: math.NaN()},
		{Time: day(4), Price: 14},
		{Time: day(5), Price: 15},
	}
	b := []Observation{
		{Time: day(1), Price: 20},
		{Time: day(2), Price: 22},
		{Time: day(3), Price: 23},
		{Time: day(4), Price: -1},
		{Time: day(5), Price: math.Inf(1)},
	}

	_, err := Align("A", a, "B", b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInsufficientData))

	b[4].Price = 25
	aligned, err := Align("A", a, "B", b)
	require.NoError(t, err)
	assert.Equal(t, 2, aligned.Len())
	assert.Equal(t, PricePoint{Time: day(5), PriceA: 15, PriceB: 25}, aligned.Last())
}

func TestAlignDuplicateTimestampLastWins(t *testing.T) {
	a := []Observation{{Time: day(1), Price: 10}, {Time: day(1), Price: 11}, {Time: day(2), Price: 12}}
	b := []Observation{{Time: day(1), Price: 20}, {Time: day(2), Price: 21}}

	aligned, err := Align("A", a, "B", b)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 12}, aligned.PricesA())
}

func TestPointsIsACopy(t *testing.T) {
	aligned, err := FromPoints("A", "B", []PricePoint{
		{Time: day(1), PriceA: 1, PriceB: 2},
		{Time: day(2), PriceA: 3, PriceB: 4},
	})
	require.NoError(t, err)

	pts := aligned.Points()
	pts[0].PriceA = 999

	assert.Equal(t, 1.0, aligned.At(0).PriceA)
}

func TestReturns(t *testing.T) {
	aligned, err := FromPoints("A", "B", []PricePoint{
		{Time: day(1), PriceA: 100, PriceB: 50},
		{Time: day(2), PriceA: 110, PriceB: 45},
	})
	require.NoError(t, err)

	ra, rb := aligned.Returns()
	assert.InDelta(t, 0.10, ra[0], 1e-12)
	assert.InDelta(t, -0.10, rb[0], 1e-12)
}
