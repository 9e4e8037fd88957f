package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/shadecraft/storefront-api/internal/pricing"
)

type stubQuerier struct {
	values map[string]string
	err    error
	calls  int
}

func (s *stubQuerier) SettingValues(context.Context, []string) (map[string]string, error) {
	s.calls++
	return s.values, s.err
}

func defaults() pricing.Thresholds {
	return pricing.Thresholds{MinimumOrderAmount: 25, FreeShippingThreshold: 100, FlatShippingFee: 9.99}
}

func TestThresholdsFromTable(t *testing.T) {
	svc := &Service{
		Q: &stubQuerier{values: map[string]string{
			KeyMinimumOrderAmount:    "50.00",
			KeyFreeShippingThreshold: "150",
			KeyFlatShippingFee:       "4.95",
		}},
		Defaults: defaults(),
	}

	got, err := svc.Thresholds(context.Background())
	require.NoError(t, err)
	require.Equal(t, pricing.Thresholds{MinimumOrderAmount: 50, FreeShippingThreshold: 150, FlatShippingFee: 4.95}, got)
}

func TestThresholdsFallBackPerKey(t *testing.T) {
	svc := &Service{
		Q: &stubQuerier{values: map[string]string{
			KeyMinimumOrderAmount:    "not-a-number",
			KeyFreeShippingThreshold: "-5",
		}},
		Defaults: defaults(),
	}

	got, err := svc.Thresholds(context.Background())
	require.NoError(t, err)
	require.Equal(t, defaults(), got, "invalid and missing values use defaults")
}

func TestThresholdsQueryError(t *testing.T) {
	svc := &Service{Q: &stubQuerier{err: errors.New("boom")}, Defaults: defaults()}
	_, err := svc.Thresholds(context.Background())
	require.Error(t, err)
}

func TestThresholdsCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	q := &stubQuerier{values: map[string]string{KeyMinimumOrderAmount: "30"}}
	svc := &Service{Q: q, Client: client, TTL: time.Minute, Defaults: defaults()}

	first, err := svc.Thresholds(context.Background())
	require.NoError(t, err)
	require.Equal(t, 30.0, first.MinimumOrderAmount)

	second, err := svc.Thresholds(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, q.calls, "second read served from cache")

	mr.FastForward(2 * time.Minute)
	_, err = svc.Thresholds(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, q.calls)
}
