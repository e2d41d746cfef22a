// Package derivation runs credential seed derivation for interactive callers:
// bounded parallelism, per-account throttling, deadlines and metrics around
// the memory-hard key derivation function.
package derivation

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"credkeys/internal/platform/privacylog"
	"credkeys/pkg/keymanager"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

var (
	ErrRateLimited        = errors.New("derivation rate limited")
	ErrDerivationCanceled = errors.New("derivation canceled")
)

// Limiter throttles derivations per key. *ratelimiter.MapLimiter satisfies it.
type Limiter interface {
	Take(key string, now time.Time) (bool, time.Duration)
}

type Options struct {
	// Concurrency bounds simultaneous derivations; each one holds the full
	// Argon2 memory cost. Defaults to 1.
	Concurrency int
	// Timeout applies to each derivation on top of the caller's context.
	// Zero means no extra deadline.
	Timeout     time.Duration
	Limiter     Limiter
	Registerer  prometheus.Registerer
	Logger      *slog.Logger
	SeedVersion keymanager.SeedVersion
	Now         func() time.Time
}

type Service struct {
	sem      *semaphore.Weighted
	timeout  time.Duration
	limiter  Limiter
	metrics  *metrics
	logger   *slog.Logger
	version  keymanager.SeedVersion
	now      func() time.Time
	deriveFn func(v keymanager.SeedVersion, appContext []byte, email, password string) (keymanager.Seed, error)
}

func New(opts Options) (*Service, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.SeedVersion == 0 {
		opts.SeedVersion = keymanager.CurrentSeedVersion
	}
	if _, err := keymanager.SeedParamsFor(opts.SeedVersion); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register derivation metrics: %w", err)
	}
	return &Service{
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		timeout:  opts.Timeout,
		limiter:  opts.Limiter,
		metrics:  m,
		logger:   slog.New(privacylog.WrapHandler(opts.Logger.Handler())),
		version:  opts.SeedVersion,
		now:      opts.Now,
		deriveFn: keymanager.DeriveSeedVersion,
	}, nil
}

// DeriveSeed derives the seed for a credential triple. The call returns as
// soon as ctx is done; a derivation already running finishes in the
// background and its result is wiped.
func (s *Service) DeriveSeed(ctx context.Context, appContext []byte, email, password string) (keymanager.Seed, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.limiter != nil {
		if ok, wait := s.limiter.Take(throttleKey(appContext, email), s.now()); !ok {
			s.metrics.total.WithLabelValues(resultRateLimited).Inc()
			s.logger.Warn("derivation throttled", "email", email, "retry_after", wait)
			return keymanager.Seed{}, fmt.Errorf("%w: retry in %s", ErrRateLimited, wait.Round(time.Millisecond))
		}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.metrics.total.WithLabelValues(resultCanceled).Inc()
		return keymanager.Seed{}, fmt.Errorf("%w: %w", ErrDerivationCanceled, err)
	}

	type result struct {
		seed keymanager.Seed
		err  error
	}
	done := make(chan result, 1)
	s.metrics.inFlight.Inc()
	go func() {
		defer s.sem.Release(1)
		defer s.metrics.inFlight.Dec()
		start := time.Now()
		seed, err := s.deriveFn(s.version, appContext, email, password)
		s.metrics.duration.Observe(time.Since(start).Seconds())
		done <- result{seed: seed, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			s.metrics.total.WithLabelValues(classify(r.err)).Inc()
			return keymanager.Seed{}, r.err
		}
		s.metrics.total.WithLabelValues(resultOK).Inc()
		s.logger.Debug("seed derived", "email", email, "context", appContext)
		return r.seed, nil
	case <-ctx.Done():
		go func() {
			r := <-done
			r.seed.Wipe()
		}()
		s.metrics.total.WithLabelValues(resultCanceled).Inc()
		s.logger.Info("derivation abandoned", "email", email, "reason", ctx.Err())
		return keymanager.Seed{}, fmt.Errorf("%w: %w", ErrDerivationCanceled, ctx.Err())
	}
}

// NewManager derives the seed for a credential triple and builds a key
// manager from it. The seed is wiped before returning.
func (s *Service) NewManager(ctx context.Context, appContext []byte, email, password string, opts ...keymanager.Option) (*keymanager.Manager, error) {
	seed, err := s.DeriveSeed(ctx, appContext, email, password)
	if err != nil {
		return nil, err
	}
	defer seed.Wipe()
	return keymanager.New(seed, opts...)
}

func classify(err error) string {
	if errors.Is(err, keymanager.ErrInvalidInput) || errors.Is(err, keymanager.ErrUnsupportedVersion) {
		return resultInvalid
	}
	return resultError
}

func throttleKey(appContext []byte, email string) string {
	return privacylog.Fingerprint(hex.EncodeToString(appContext) + "|" + email)
}
