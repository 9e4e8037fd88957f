package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shadecraft/storefront-api/internal/obs"
	"github.com/shadecraft/storefront-api/internal/pricing"
)

// Cached decorates a pricing.Store with a short-TTL Redis read-through for
// the rule tables hit on every calculation. Cache failures fall through to
// the database; pricing never fails because Redis is down.
type Cached struct {
	Next   pricing.Store
	Client *redis.Client
	TTL    time.Duration
	Prefix string
	Log    zerolog.Logger
}

// NewCached wraps next with the Redis read-through layer.
func NewCached(next pricing.Store, client *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cached{Next: next, Client: client, TTL: ttl, Prefix: "pricing:"}
}

// ProductsByIDs passes through; the catalog is read per calculation anyway.
func (c *Cached) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]pricing.Product, error) {
	return c.Next.ProductsByIDs(ctx, ids)
}

// VendorsForProducts passes through.
func (c *Cached) VendorsForProducts(ctx context.Context, ids []int64) (map[int64]pricing.Vendor, error) {
	return c.Next.VendorsForProducts(ctx, ids)
}

// CustomerRulesFor passes through; customer rules are too sparse to cache.
func (c *Cached) CustomerRulesFor(ctx context.Context, customerID int64, productIDs []int64) (map[int64][]pricing.CustomerRule, error) {
	return c.Next.CustomerRulesFor(ctx, customerID, productIDs)
}

// DynamicRulesFor passes through; its key space varies per cart.
func (c *Cached) DynamicRulesFor(ctx context.Context, productIDs []int64) (map[int64][]pricing.DynamicRule, error) {
	return c.Next.DynamicRulesFor(ctx, productIDs)
}

// DiscountsForVendor serves a vendor's discount list from cache when fresh.
func (c *Cached) DiscountsForVendor(ctx context.Context, vendorID int64) ([]pricing.VendorDiscount, error) {
	key := fmt.Sprintf("%sdiscounts:%d", c.Prefix, vendorID)
	var cached []pricing.VendorDiscount
	if ok := c.get(ctx, key, &cached); ok {
		return cached, nil
	}
	fresh, err := c.Next.DiscountsForVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, fresh)
	return fresh, nil
}

// CouponByCode serves coupon lookups from cache. Only hits are cached so a
// just-created coupon becomes visible immediately.
func (c *Cached) CouponByCode(ctx context.Context, code string) (*pricing.Coupon, error) {
	key := c.Prefix + "coupon:" + strings.TrimSpace(code)
	var cached pricing.Coupon
	if ok := c.get(ctx, key, &cached); ok {
		return &cached, nil
	}
	fresh, err := c.Next.CouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		c.set(ctx, key, fresh)
	}
	return fresh, nil
}

// CampaignByCode serves campaign lookups from cache.
func (c *Cached) CampaignByCode(ctx context.Context, code string) (*pricing.Campaign, error) {
	key := c.Prefix + "campaign:" + strings.TrimSpace(code)
	var cached pricing.Campaign
	if ok := c.get(ctx, key, &cached); ok {
		return &cached, nil
	}
	fresh, err := c.Next.CampaignByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		c.set(ctx, key, fresh)
	}
	return fresh, nil
}

func (c *Cached) get(ctx context.Context, key string, dest any) bool {
	if c.Client == nil {
		return false
	}
	raw, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.Log.Debug().Err(err).Str("key", key).Msg("rule cache read failed")
			c.count("error")
			return false
		}
		c.count("miss")
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.count("error")
		return false
	}
	c.count("hit")
	return true
}

func (c *Cached) set(ctx context.Context, key string, v any) {
	if c.Client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, key, raw, c.TTL).Err(); err != nil {
		c.Log.Debug().Err(err).Str("key", key).Msg("rule cache write failed")
	}
}

func (c *Cached) count(outcome string) {
	if obs.RuleCacheTotal != nil {
		obs.RuleCacheTotal.WithLabelValues(outcome).Inc()
	}
}
