package worker

import (
	iface "RouteGrader/interface"
	"RouteGrader/model"
	"RouteGrader/model/modeltest"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var extent = iface.ImageExtent{Width: 1100, Height: 1700}

func TestPool_Grade(t *testing.T) {
	p := NewPool(model.NewHolder(modeltest.Column(t, 5, 2)), 4, nil)
	p.Start(2)
	defer p.Close()

	res, err := p.Submit(context.Background(), Job{
		Boxes:  []iface.Box{{X: 550, Y: 850, Width: 1, Height: 1}},
		Extent: extent,
	})
	require.NoError(t, err)
	assert.False(t, res.NeedsConfirmation)
	assert.Equal(t, "V4", res.Grade.Label)
	assert.Equal(t, []string{"F9"}, res.Holds)
	assert.Len(t, res.Coordinates, 198)
}

func TestPool_LargeHolds(t *testing.T) {
	p := NewPool(model.NewHolder(modeltest.Network(t)), 1, nil)
	p.Start(1)
	defer p.Close()

	job := Job{
		Boxes:  []iface.Box{{X: 550, Y: 850, Width: 1100, Height: 1700}},
		Extent: extent,
	}
	res, err := p.Submit(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, res.NeedsConfirmation)
	assert.Equal(t, 1, res.LargeHolds)
	assert.Empty(t, res.Grade.Label)

	job.AcceptLargeHolds = true
	res, err = p.Submit(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, res.NeedsConfirmation)
	assert.NotEmpty(t, res.Grade.Label)
}

func TestPool_Errors(t *testing.T) {
	p := NewPool(model.NewHolder(nil), 1, nil)
	p.Start(1)
	_, err := p.Submit(context.Background(), Job{Extent: extent})
	assert.ErrorIs(t, err, ErrNoModel)

	p.models.Swap(modeltest.Network(t))
	_, err = p.Submit(context.Background(), Job{Extent: iface.ImageExtent{Width: 0, Height: 5}})
	assert.ErrorIs(t, err, iface.ErrInvalidExtent)

	p.Close()
	p.Close()
	_, err = p.Submit(context.Background(), Job{Extent: extent})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPool_RecoversFromPanic(t *testing.T) {
	p := NewPool(nil, 1, nil)
	p.Start(1)
	defer p.Close()

	_, err := p.Submit(context.Background(), Job{Extent: extent})
	assert.ErrorContains(t, err, "panic")
	// the same worker is still serving
	_, err = p.Submit(context.Background(), Job{Extent: extent})
	assert.ErrorContains(t, err, "panic")
}

func TestPool_ContextCancelled(t *testing.T) {
	p := NewPool(model.NewHolder(modeltest.Network(t)), 1, nil)
	// no workers: the first job fills the queue, the second cannot be queued
	go func() { _, _ = p.Submit(context.Background(), Job{Extent: extent}) }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Submit(ctx, Job{Extent: extent})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.Start(1)
	p.Close()
}

func TestPool_Concurrent(t *testing.T) {
	p := NewPool(model.NewHolder(modeltest.Column(t, 0, 1)), 8, nil)
	p.Start(4)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Submit(context.Background(), Job{
				Boxes:  []iface.Box{{X: 0, Y: float64(i * 50), Width: 1, Height: 1}},
				Extent: extent,
			})
			assert.NoError(t, err)
			assert.Equal(t, "V3", res.Grade.Label)
		}()
	}
	wg.Wait()
}
