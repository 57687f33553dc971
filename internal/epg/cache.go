// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

// Package epg caches the box program guide in fixed two-hour buckets.
//
// The box rate-limits its EPG endpoint aggressively, while the TV page asks
// for "now" every few seconds. Every requested timestamp is floored to its
// bucket, so all requests inside one window share a single upstream call per
// TTL. Concurrent misses for the same bucket are coalesced into one call.
package epg

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"

	"github.com/fbxdash/fbxdash/internal/freebox"
	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/metrics"
)

const (
	// BucketSeconds is the width of one cache bucket.
	BucketSeconds int64 = 2 * 60 * 60

	// DefaultTTL is how long a fetched bucket is served without refetching.
	DefaultTTL = 2 * time.Hour

	// DefaultSweepThreshold is the size above which an insert sweeps expired entries.
	DefaultSweepThreshold = 20
)

// Fetcher is the upstream EPG-by-time call.
type Fetcher interface {
	EPGByTime(ctx context.Context, timestamp int64) (*freebox.Response, error)
}

// Config configures a Cache. Zero values take the defaults.
type Config struct {
	TTL            time.Duration
	SweepThreshold int

	// Now overrides the clock (tests).
	Now func() time.Time
}

type entry struct {
	data      *freebox.Response
	fetchedAt time.Time
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
}

// Cache is a process-wide EPG cache keyed by bucket start timestamp.
type Cache struct {
	fetcher        Fetcher
	entries        *xsync.Map[int64, entry]
	flights        singleflight.Group
	ttl            time.Duration
	sweepThreshold int
	now            func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a Cache in front of fetcher.
func New(fetcher Fetcher, cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepThreshold <= 0 {
		cfg.SweepThreshold = DefaultSweepThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		fetcher:        fetcher,
		entries:        xsync.NewMap[int64, entry](),
		ttl:            cfg.TTL,
		sweepThreshold: cfg.SweepThreshold,
		now:            cfg.Now,
	}
}

// Bucket floors a unix timestamp to the start of its two-hour window.
func Bucket(timestamp int64) int64 {
	b := timestamp / BucketSeconds
	if timestamp%BucketSeconds != 0 && timestamp < 0 {
		b--
	}
	return b * BucketSeconds
}

// Fetch returns the guide for the bucket containing timestamp. A valid cached
// envelope is returned without contacting the box. Unsuccessful envelopes are
// returned unchanged and never cached; transport errors are returned as errors.
func (c *Cache) Fetch(ctx context.Context, timestamp int64) (*freebox.Response, error) {
	bucket := Bucket(timestamp)

	if data, ok := c.lookup(bucket); ok {
		c.hits.Add(1)
		metrics.EPGCacheHits.Inc()
		return data, nil
	}

	v, err, shared := c.flights.Do(strconv.FormatInt(bucket, 10), func() (interface{}, error) {
		if data, ok := c.lookup(bucket); ok {
			return data, nil
		}

		c.misses.Add(1)
		metrics.EPGCacheMisses.Inc()

		// The upstream call outlives any single caller of the flight.
		resp, err := c.fetcher.EPGByTime(context.WithoutCancel(ctx), bucket)
		if err != nil {
			return nil, err
		}
		if resp.Success {
			c.store(bucket, resp)
		} else {
			logging.Debug().
				Int64("bucket", bucket).
				Str("error_code", resp.ErrorCode).
				Msg("EPG upstream returned failure, not cached")
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Debug().Int64("bucket", bucket).Msg("EPG request coalesced")
	}
	return v.(*freebox.Response), nil
}

func (c *Cache) lookup(bucket int64) (*freebox.Response, bool) {
	e, ok := c.entries.Load(bucket)
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.data, true
}

// store inserts a fresh entry and sweeps expired ones once the map grows
// past the threshold.
func (c *Cache) store(bucket int64, resp *freebox.Response) {
	c.entries.Store(bucket, entry{data: resp, fetchedAt: c.now()})

	if c.entries.Size() > c.sweepThreshold {
		c.sweep()
	}
	metrics.EPGCacheEntries.Set(float64(c.entries.Size()))
}

func (c *Cache) sweep() {
	now := c.now()
	removed := 0
	c.entries.Range(func(key int64, e entry) bool {
		if now.Sub(e.fetchedAt) > c.ttl {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.evictions.Add(uint64(removed))
		metrics.EPGCacheEvictions.Add(float64(removed))
		logging.Debug().Int("removed", removed).Msg("EPG cache swept")
	}
}

// Stats returns cache counters and current size.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.entries.Size(),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	return c.entries.Size()
}
