package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/icodeforyou/rceprices-go/types"
)

var ErrNoSnapshot = errors.New("no price snapshot available")

const (
	DefaultInterval = 30 * time.Minute
	DefaultTimeout  = 30 * time.Second
)

type Options struct {
	Interval   time.Duration // Minimum age of the snapshot before the provider is asked again
	Timeout    time.Duration // Upper bound for one fetch including retries
	MaxRetries uint64
}

// Snapshot is the price data callers work on. Records must be treated as read only.
type Snapshot struct {
	Records   []types.PriceRecord
	FetchedAt time.Time
	Stale     bool // the latest fetch failed and older data is served
}

// Feed caches the last good snapshot of a provider. Once a fetch has succeeded
// callers never see a provider error again, they get the previous snapshot.
// fetchMu serializes fetches, mu only guards the cached state so readers are
// not held up by a slow provider.
type Feed struct {
	logger     *slog.Logger
	provider   types.PriceRecordProvider
	opts       Options
	fetchMu    sync.Mutex
	mu         sync.RWMutex
	lastFetch  time.Time
	snapshot   *Snapshot
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

func New(provider types.PriceRecordProvider, opts Options) *Feed {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Feed{
		logger:   slog.Default().With("module", "feed"),
		provider: provider,
		opts:     opts,
		now:      time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 10 * time.Second
			return b
		},
	}
}

// Seed installs records loaded from storage as the fallback snapshot. It does
// not count as a fetch, the next Snapshot call still asks the provider.
func (f *Feed) Seed(records []types.PriceRecord, fetchedAt time.Time) {
	if len(records) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		f.snapshot = &Snapshot{Records: records, FetchedAt: fetchedAt}
	}
}

// Snapshot returns the cached data while it is younger than the interval and
// fetches otherwise.
func (f *Feed) Snapshot(ctx context.Context) (Snapshot, error) {
	f.fetchMu.Lock()
	defer f.fetchMu.Unlock()

	now := f.now()
	f.mu.RLock()
	fresh := f.snapshot != nil && !f.lastFetch.IsZero() && now.Sub(f.lastFetch) < f.opts.Interval
	var cached Snapshot
	if fresh {
		cached = *f.snapshot
	}
	age := now.Sub(f.lastFetch)
	f.mu.RUnlock()

	if fresh {
		f.logger.Debug("using cached price snapshot", slog.Duration("age", age))
		return cached, nil
	}
	return f.fetch(ctx, now)
}

// Refresh fetches regardless of the snapshot age.
func (f *Feed) Refresh(ctx context.Context) (Snapshot, error) {
	f.fetchMu.Lock()
	defer f.fetchMu.Unlock()
	return f.fetch(ctx, f.now())
}

// Current returns the snapshot without fetching, also while a fetch is running.
func (f *Feed) Current() (Snapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.snapshot == nil {
		return Snapshot{}, false
	}
	return *f.snapshot, true
}

func (f *Feed) LastFetch() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastFetch
}

// fetch must be called with fetchMu held.
func (f *Feed) fetch(ctx context.Context, now time.Time) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), f.opts.MaxRetries), ctx)
	records, err := backoff.RetryWithData(func() ([]types.PriceRecord, error) {
		attempt++
		records, err := f.provider.GetPriceRecords(ctx)
		if err != nil {
			f.logger.Debug("price fetch attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
		}
		return records, err
	}, b)

	f.mu.Lock()
	defer f.mu.Unlock()

	// A failed fetch also counts, the provider is not hammered until the interval passed.
	f.lastFetch = now

	if err != nil {
		if f.snapshot != nil {
			f.logger.Warn("price fetch failed, using previous snapshot",
				slog.Time("fetchedAt", f.snapshot.FetchedAt),
				slog.Any("error", err))
			stale := *f.snapshot
			stale.Stale = true
			f.snapshot = &stale
			return stale, nil
		}
		return Snapshot{}, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	}

	f.snapshot = &Snapshot{Records: records, FetchedAt: now}
	f.logger.Debug("price snapshot updated", slog.Int("records", len(records)))
	return *f.snapshot, nil
}
