package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	n     int64
	err   error
	calls int
}

func (f *fakePurger) PurgeExpired(context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestCartPurgeJob(t *testing.T) {
	purger := &fakePurger{n: 4}
	job, err := NewCartPurgeJob(testLogger(), purger)
	require.NoError(t, err)

	assert.Equal(t, "cart-purge", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, purger.calls)

	purger.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}

func TestCartPurgeJobRequiresDeps(t *testing.T) {
	_, err := NewCartPurgeJob(nil, &fakePurger{})
	assert.Error(t, err)
	_, err = NewCartPurgeJob(testLogger(), nil)
	assert.Error(t, err)
}
