package index

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBaseline_OpenAnchored(t *testing.T) {
	s := testSession(t)

	t.Run("first point in opening window uses close", func(t *testing.T) {
		aligned := Align(series("A", pp(at(9, 0), 99, 100), pp(at(9, 5), 100, 102)), s)
		b, err := SelectBaseline(aligned, nil, PolicyOpenAnchored, s)
		require.NoError(t, err)
		assert.Equal(t, 100.0, b.Price)
		assert.Equal(t, at(9, 0), b.Anchor)
		assert.Equal(t, PolicyOpenAnchored, b.Policy)
	})

	t.Run("late first print inside window", func(t *testing.T) {
		aligned := Align(series("A", pp(at(9, 9), 50, 51), pp(at(9, 30), 50, 52)), s)
		b, err := SelectBaseline(aligned, nil, PolicyOpenAnchored, s)
		require.NoError(t, err)
		assert.Equal(t, 51.0, b.Price)
	})

	t.Run("no point in opening window", func(t *testing.T) {
		aligned := Align(series("A", pp(at(9, 10), 50, 51), pp(at(10, 0), 50, 52)), s)
		_, err := SelectBaseline(aligned, nil, PolicyOpenAnchored, s)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidBaseline))
	})

	t.Run("empty series is unavailable", func(t *testing.T) {
		_, err := SelectBaseline(series("A"), nil, PolicyOpenAnchored, s)
		assert.True(t, errors.Is(err, ErrInstrumentUnavailable))
	})
}

func TestSelectBaseline_PriorClose(t *testing.T) {
	s := testSession(t)
	aligned := Align(series("A", pp(at(9, 0), 100, 101)), s)

	day := func(d int) time.Time { return time.Date(2025, 1, d, 9, 0, 0, 0, jst) }

	t.Run("most recent prior session", func(t *testing.T) {
		history := []DailyClose{
			{Date: day(2), Close: 95},
			{Date: day(3), Close: 98},
			{Date: day(6), Close: 101}, // today, ignored
		}
		b, err := SelectBaseline(aligned, history, PolicyPriorClose, s)
		require.NoError(t, err)
		assert.Equal(t, 98.0, b.Price)
		assert.True(t, b.Anchor.IsZero())
	})

	t.Run("skips invalid closes", func(t *testing.T) {
		history := []DailyClose{{Date: day(2), Close: 95}, {Date: day(3), Close: 0}}
		b, err := SelectBaseline(aligned, history, PolicyPriorClose, s)
		require.NoError(t, err)
		assert.Equal(t, 95.0, b.Price)
	})

	t.Run("newly listed without history", func(t *testing.T) {
		history := []DailyClose{{Date: day(6), Close: 100}}
		_, err := SelectBaseline(aligned, history, PolicyPriorClose, s)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidBaseline))
	})
}

func TestSelectBaseline_UnknownPolicy(t *testing.T) {
	s := testSession(t)
	aligned := Align(series("A", pp(at(9, 0), 100, 101)), s)
	_, err := SelectBaseline(aligned, nil, BaselinePolicy("vwap"), s)
	assert.Error(t, err)
}

func TestBaselinePolicyString(t *testing.T) {
	assert.Equal(t, "open", PolicyOpenAnchored.String())
	assert.Equal(t, "prior_close", PolicyPriorClose.String())
	assert.False(t, PolicyOpenAnchored.NeedsHistory())
	assert.True(t, PolicyPriorClose.NeedsHistory())
}

func TestNormalize(t *testing.T) {
	s := testSession(t)
	aligned := Align(series("A", pp(at(9, 0), 99, 100), pp(at(9, 5), 100, 101), pp(at(9, 10), 100, 98)), s)
	b, err := SelectBaseline(aligned, nil, PolicyOpenAnchored, s)
	require.NoError(t, err)

	got := Normalize(aligned, b)
	require.Len(t, got, 3)
	// Percent at the anchor timestamp is exactly zero.
	assert.Equal(t, b.Anchor, got[0].Time)
	assert.InDelta(t, 0.0, got[0].Percent, 1e-12)
	assert.InDelta(t, 1.0, got[1].Percent, 1e-9)
	assert.InDelta(t, -2.0, got[2].Percent, 1e-9)

	assert.Nil(t, Normalize(aligned, Baseline{Price: 0}))
}
