package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hinosemi/internal/index"
)

var jst = time.FixedZone("JST", 9*3600)

func sampleRelease() Release {
	base := time.Date(2025, 1, 6, 9, 0, 0, 0, jst)
	return Release{
		Snapshot: index.Snapshot{Key: "HINOSEMI", PctIntraday: 1.23, UpdatedAt: "2025/01/06 09:05", Unit: "pct", Tickers: []string{"8035.T"}},
		Series: index.IndexSeries{
			{Time: base, Percent: 0, Resolved: true},
			{Time: base.Add(5 * time.Minute), Percent: 1.23, Resolved: true},
		},
		Post: "【HINOSEMI】\n本日：+1.23%\n",
	}
}

type funcPublisher struct {
	name  string
	err   error
	calls int
}

func (f *funcPublisher) Name() string { return f.name }

func (f *funcPublisher) Publish(context.Context, Release) error {
	f.calls++
	return f.err
}

func TestFanoutContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	first := &funcPublisher{name: "first", err: boom}
	second := &funcPublisher{name: "second"}

	f := NewFanout(nil, first, second)
	err := f.Publish(context.Background(), sampleRelease())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	failed := Failed(err)
	if assert.Len(t, failed, 1) {
		assert.Equal(t, "first", failed[0].Publisher)
	}
	assert.Equal(t, "publish first: boom", failed[0].Error())
}

func TestFanoutAllSucceed(t *testing.T) {
	f := NewFanout(nil, &funcPublisher{name: "a"}, &funcPublisher{name: "b"})
	assert.Equal(t, 2, f.Len())
	assert.NoError(t, f.Publish(context.Background(), sampleRelease()))
	assert.Nil(t, Failed(nil))
}

func TestFanoutEmpty(t *testing.T) {
	assert.NoError(t, NewFanout(nil).Publish(context.Background(), sampleRelease()))
}
