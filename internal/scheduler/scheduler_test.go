// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	s := New()
	noop := func(context.Context) Result { return ResultSuccess }

	require.Error(t, s.RegisterPeriodicTask("", time.Minute, noop))
	require.Error(t, s.RegisterPeriodicTask("x", 0, noop))
	require.Error(t, s.RegisterPeriodicTask("x", time.Minute, nil))
	require.NoError(t, s.RegisterPeriodicTask("x", time.Minute, noop))
	assert.Len(t, s.Tasks(), 1)
}

func TestPeriodicRuns(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.RegisterPeriodicTask("tick", 5*time.Millisecond, func(context.Context) Result {
		runs.Add(1)
		return ResultNoData
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "no-data", tasks[0].LastResult)
	assert.GreaterOrEqual(t, tasks[0].Runs, 2)
}

func TestUnregisterStopsTask(t *testing.T) {
	s := New()
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.NoError(t, s.RegisterPeriodicTask("tick", 5*time.Millisecond, func(context.Context) Result {
		runs.Add(1)
		return ResultSuccess
	}))
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, time.Millisecond)

	assert.True(t, s.UnregisterTask("tick"))
	assert.False(t, s.UnregisterTask("tick"))

	time.Sleep(20 * time.Millisecond)
	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}

func TestRunNow(t *testing.T) {
	s := New()
	require.NoError(t, s.RegisterPeriodicTask("job", time.Hour, func(context.Context) Result {
		return ResultFailure
	}))

	res, err := s.RunNow(context.Background(), "job")
	require.NoError(t, err)
	assert.Equal(t, ResultFailure, res)
	assert.Equal(t, 1, s.Tasks()[0].Runs)

	_, err = s.RunNow(context.Background(), "missing")
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "failure", ResultFailure.String())
	assert.Equal(t, "no-data", ResultNoData.String())
}
