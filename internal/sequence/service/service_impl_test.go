package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/bursar/internal/observability/metrics"
	"github.com/smallbiznis/bursar/internal/sequence/domain"
	"github.com/smallbiznis/bursar/internal/sequence/repository"
	"github.com/smallbiznis/bursar/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		Repo:    repository.Provide(),
		Metrics: m,
	})
	return svc, conn
}

func fixedFloor(v int64) domain.FloorFunc {
	return func(context.Context, *gorm.DB) (int64, error) { return v, nil }
}

func TestNext_StartsAtOneAndIncreases(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	counter := domain.Counter{Name: "receipt_serial"}

	for want := int64(1); want <= 3; want++ {
		got, err := svc.Next(ctx, counter)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	current, err := svc.Current(ctx, "receipt_serial")
	require.NoError(t, err)
	assert.Equal(t, int64(3), current)
}

func TestNext_ConcurrentCallersGetDistinctValues(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	counter := domain.Counter{Name: "receipt_serial"}

	const workers = 25
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values []int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.Next(ctx, counter)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, values, workers)
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestNext_SkipsPastFloor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Next(ctx, domain.Counter{Name: "receipt_serial", Floor: fixedFloor(41)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), first)

	// a floor below the counter is ignored
	second, err := svc.Next(ctx, domain.Counter{Name: "receipt_serial", Floor: fixedFloor(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(43), second)
}

func TestNext_FloorError(t *testing.T) {
	svc, _ := newTestService(t)
	boom := errors.New("boom")

	_, err := svc.Next(context.Background(), domain.Counter{
		Name:  "receipt_serial",
		Floor: func(context.Context, *gorm.DB) (int64, error) { return 0, boom },
	})
	assert.ErrorIs(t, err, boom)
}

func TestNext_InvalidName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Next(context.Background(), domain.Counter{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Current(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestHeal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	healed, err := svc.Heal(ctx, domain.Counter{Name: "receipt_serial", Floor: fixedFloor(10)})
	require.NoError(t, err)
	assert.True(t, healed)

	healed, err = svc.Heal(ctx, domain.Counter{Name: "receipt_serial", Floor: fixedFloor(10)})
	require.NoError(t, err)
	assert.False(t, healed)

	next, err := svc.Next(ctx, domain.Counter{Name: "receipt_serial"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), next)
}

func TestCurrent_UnknownSequence(t *testing.T) {
	svc, _ := newTestService(t)

	v, err := svc.Current(context.Background(), "never_used")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}
