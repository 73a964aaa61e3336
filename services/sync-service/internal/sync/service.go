package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	upstream "github.com/lmsapps/adsync/internal/models"
	"github.com/lmsapps/adsync/services/sync-service/internal/linkedin"
	"github.com/lmsapps/adsync/services/sync-service/internal/models"
)

// Kind tags the upstream collection a sync cycle targets. The two kinds have
// different response shapes (elements array vs results map), so dispatch is
// explicit rather than polymorphic.
type Kind string

const (
	KindAdAccounts    Kind = "adAccounts"
	KindOrganizations Kind = "organizations"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 1 * time.Second
	DefaultWorkers       = 8
)

// ErrNoOrganizationIDs is returned when an organization sync is requested
// without any IDs to look up.
var ErrNoOrganizationIDs = errors.New("no organization IDs provided")

// UpstreamClient is the slice of the LinkedIn client the orchestrator needs.
type UpstreamClient interface {
	FetchAdAccounts(ctx context.Context, cred linkedin.Credential) ([]upstream.AdAccountElement, error)
	LookupOrganizations(ctx context.Context, cred linkedin.Credential, ids []string) (map[string]upstream.OrganizationResult, error)
}

// Options carries per-kind extra parameters for a sync cycle.
type Options struct {
	// OrganizationIDs selects the organizations to look up. Required for
	// KindOrganizations; ignored for KindAdAccounts.
	OrganizationIDs []string
}

// Service drives one full synchronization cycle per call: acquire
// credentials from the caller, fetch every page, normalize, reconcile.
// There is no persisted cursor between cycles; every cycle re-fetches the
// full upstream collection and relies on idempotent reconciliation.
//
// Concurrent cycles for different users never race (natural keys carry no
// cross-user component). Cycles for the same user and collection must be
// serialized by the caller.
type Service struct {
	client   UpstreamClient
	accounts Store[models.AdAccount]
	orgs     Store[models.Organization]
	logger   *zap.Logger

	retryAttempts int
	retryDelay    time.Duration
	workers       int
	now           func() time.Time
}

// NewService creates an orchestrator with injected collaborators. Retry and
// worker settings come from configuration.
func NewService(client UpstreamClient, accounts Store[models.AdAccount], orgs Store[models.Organization], logger *zap.Logger) *Service {
	attempts := viper.GetInt("sync.retry_attempts")
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	delay := viper.GetDuration("sync.retry_delay")
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	workers := viper.GetInt("sync.workers")
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Service{
		client:        client,
		accounts:      accounts,
		orgs:          orgs,
		logger:        logger,
		retryAttempts: attempts,
		retryDelay:    delay,
		workers:       workers,
		now:           time.Now,
	}
}

// SyncCollection runs one cycle for the given collection kind.
func (s *Service) SyncCollection(ctx context.Context, kind Kind, cred linkedin.Credential, userID uuid.UUID, opts Options) (*Result, error) {
	switch kind {
	case KindAdAccounts:
		return s.SyncAdAccounts(ctx, cred, userID)
	case KindOrganizations:
		return s.SyncOrganizations(ctx, cred, opts.OrganizationIDs)
	default:
		return nil, fmt.Errorf("unknown collection kind %q", kind)
	}
}

// SyncAdAccounts fetches the caller's full ad account collection and
// reconciles it against the store.
func (s *Service) SyncAdAccounts(ctx context.Context, cred linkedin.Credential, userID uuid.UUID) (*Result, error) {
	var elements []upstream.AdAccountElement
	err := s.retryWithBackoff(ctx, func() error {
		var err error
		elements, err = s.client.FetchAdAccounts(ctx, cred)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch phase failed: %w", err)
	}

	// No partial writes occur before this point: normalization works on
	// the fully fetched in-memory batch.
	records := make([]models.AdAccount, 0, len(elements))
	var failed []Failure
	for i, raw := range elements {
		rec, err := NormalizeAdAccount(raw, userID)
		if err != nil {
			key := raw.ID.String()
			if key == "" {
				key = fmt.Sprintf("elements[%d]", i)
			}
			s.logger.Warn("skipping malformed ad account",
				zap.String("key", key),
				zap.Error(err))
			failed = append(failed, Failure{Key: key, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}

	result, err := Reconcile[models.AdAccount](ctx, s.accounts, records, s.workers)
	if err != nil {
		return nil, fmt.Errorf("reconcile phase failed: %w", err)
	}
	result.Failed = append(result.Failed, failed...)

	s.logger.Info("ad account sync complete",
		zap.String("user_id", userID.String()),
		zap.Int("fetched", len(elements)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", len(result.Failed)))

	return result, nil
}

// SyncOrganizations looks up the given organizations and reconciles them
// against the store. Organizations carry no owner linkage; ad accounts
// resolve to them at display time via their reference URN.
func (s *Service) SyncOrganizations(ctx context.Context, cred linkedin.Credential, ids []string) (*Result, error) {
	if len(ids) == 0 {
		return nil, ErrNoOrganizationIDs
	}

	var results map[string]upstream.OrganizationResult
	err := s.retryWithBackoff(ctx, func() error {
		var err error
		results, err = s.client.LookupOrganizations(ctx, cred, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch phase failed: %w", err)
	}

	now := s.now()
	records := make([]models.Organization, 0, len(results))
	var failed []Failure
	for id, raw := range results {
		rec, err := NormalizeOrganization(id, raw, now)
		if err != nil {
			s.logger.Warn("skipping malformed organization",
				zap.String("key", id),
				zap.Error(err))
			failed = append(failed, Failure{Key: id, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}

	result, err := Reconcile[models.Organization](ctx, s.orgs, records, s.workers)
	if err != nil {
		return nil, fmt.Errorf("reconcile phase failed: %w", err)
	}
	result.Failed = append(result.Failed, failed...)

	s.logger.Info("organization sync complete",
		zap.Int("requested", len(ids)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", len(result.Failed)))

	return result, nil
}

// retryWithBackoff runs fn, retrying retryable upstream failures (5xx and
// timeouts) with capped exponential backoff. 4xx responses and a broken
// pagination contract surface immediately. Waits are cancellable.
func (s *Service) retryWithBackoff(ctx context.Context, fn func() error) error {
	delay := s.retryDelay

	var err error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		if attempt < s.retryAttempts {
			s.logger.Warn("upstream request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.retryAttempts),
				zap.Duration("delay", delay),
				zap.Error(err))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}

func isRetryable(err error) bool {
	var timeoutErr *linkedin.UpstreamTimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var upstreamErr *linkedin.UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Retryable()
	}
	return false
}
