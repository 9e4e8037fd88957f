package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shadecraft/storefront-api/internal/pricing"
)

// Setting keys read by the pricing pipeline.
const (
	KeyMinimumOrderAmount    = "minimum_order_amount"
	KeyFreeShippingThreshold = "free_shipping_threshold"
	KeyFlatShippingFee       = "flat_shipping_fee"
)

const cacheKey = "settings:thresholds"

// Querier captures the database reads required by the settings service.
type Querier interface {
	SettingValues(ctx context.Context, keys []string) (map[string]string, error)
}

// PG implements Querier against the settings table.
type PG struct {
	Pool *pgxpool.Pool
}

// SettingValues fetches raw values for the given keys.
func (p PG) SettingValues(ctx context.Context, keys []string) (map[string]string, error) {
	if p.Pool == nil {
		return nil, errors.New("settings: database unavailable")
	}
	rows, err := p.Pool.Query(ctx, `SELECT key, value FROM settings WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Service resolves storefront checkout thresholds with a short Redis cache in
// front of the settings table. Missing or unparseable values fall back to the
// configured defaults, so the storefront keeps working on a half-seeded
// database.
type Service struct {
	Q        Querier
	Client   *redis.Client
	TTL      time.Duration
	Defaults pricing.Thresholds
	Log      zerolog.Logger
}

// Thresholds returns the current checkout thresholds.
func (s *Service) Thresholds(ctx context.Context) (pricing.Thresholds, error) {
	if s == nil || s.Q == nil {
		return pricing.Thresholds{}, errors.New("settings service not configured")
	}
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	values, err := s.Q.SettingValues(ctx, []string{KeyMinimumOrderAmount, KeyFreeShippingThreshold, KeyFlatShippingFee})
	if err != nil {
		return pricing.Thresholds{}, err
	}
	t := pricing.Thresholds{
		MinimumOrderAmount:    s.amount(values, KeyMinimumOrderAmount, s.Defaults.MinimumOrderAmount),
		FreeShippingThreshold: s.amount(values, KeyFreeShippingThreshold, s.Defaults.FreeShippingThreshold),
		FlatShippingFee:       s.amount(values, KeyFlatShippingFee, s.Defaults.FlatShippingFee),
	}
	s.toCache(ctx, t)
	return t, nil
}

func (s *Service) amount(values map[string]string, key string, fallback float64) float64 {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		s.Log.Warn().Str("key", key).Str("value", raw).Msg("ignoring invalid setting")
		return fallback
	}
	return v
}

func (s *Service) fromCache(ctx context.Context) (pricing.Thresholds, bool) {
	if s.Client == nil {
		return pricing.Thresholds{}, false
	}
	raw, err := s.Client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return pricing.Thresholds{}, false
	}
	var t pricing.Thresholds
	if err := json.Unmarshal(raw, &t); err != nil {
		return pricing.Thresholds{}, false
	}
	return t, true
}

func (s *Service) toCache(ctx context.Context, t pricing.Thresholds) {
	if s.Client == nil {
		return
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := s.Client.Set(ctx, cacheKey, raw, ttl).Err(); err != nil {
		s.Log.Debug().Err(err).Msg("settings cache write failed")
	}
}
