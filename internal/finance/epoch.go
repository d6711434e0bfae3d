package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/models"
)

// Epoch is a project's financial core start date: the first day with
// reconciled data.
type Epoch struct {
	ProjectID string     `json:"project_id"`
	Start     civil.Date `json:"financial_core_start_date"`
}

// IsInCoreEra reports whether d is on or after the epoch.
func (e Epoch) IsInCoreEra(d civil.Date) bool {
	return !d.Before(e.Start)
}

// HasLegacyPortion reports whether r starts before the epoch.
func (e Epoch) HasLegacyPortion(r models.DateRange) bool {
	return r.Start.Before(e.Start)
}

// IsFullyCoreEra reports whether r starts on or after the epoch.
func (e Epoch) IsFullyCoreEra(r models.DateRange) bool {
	return !r.Start.Before(e.Start)
}

// ClipToCoreEra returns r with its start raised to the epoch. It returns
// false when r ends before the epoch.
func (e Epoch) ClipToCoreEra(r models.DateRange) (models.DateRange, bool) {
	if r.End.Before(e.Start) || !r.Valid() {
		return models.DateRange{}, false
	}
	clipped := r
	if clipped.Start.Before(e.Start) {
		clipped.Start = e.Start
	}
	return clipped, true
}

// SettingsStore persists epoch settings.
type SettingsStore interface {
	Get(ctx context.Context, projectID string) (*models.EpochSettings, error)
	Create(ctx context.Context, projectID string, start civil.Date) (*models.EpochSettings, error)
	Update(ctx context.Context, projectID string, start civil.Date) (*models.EpochSettings, error)
}

// EpochCache caches resolved epochs per project.
type EpochCache interface {
	Get(ctx context.Context, projectID string) (civil.Date, bool, error)
	Set(ctx context.Context, projectID string, start civil.Date) error
	Invalidate(ctx context.Context, projectID string) error
}

// EpochLocker serializes epoch updates for a project.
type EpochLocker interface {
	Lock(ctx context.Context, projectID string) (unlock func(context.Context) error, err error)
}

// EpochResolver resolves and updates per-project epochs.
type EpochResolver struct {
	store  SettingsStore
	cache  EpochCache
	locker EpochLocker
	clock  Clock
	logger *logging.StandardLogger
}

// NewEpochResolver creates a resolver. cache and locker may be nil.
func NewEpochResolver(store SettingsStore, cache EpochCache, locker EpochLocker, clock Clock, logger *logging.StandardLogger) *EpochResolver {
	return &EpochResolver{
		store:  store,
		cache:  cache,
		locker: locker,
		clock:  clock,
		logger: logger,
	}
}

// GetEpoch returns the project's epoch, creating it with today's business
// date when none exists.
func (r *EpochResolver) GetEpoch(ctx context.Context, projectID string) (Epoch, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return Epoch{}, ErrInvalidProject
	}

	if r.cache != nil {
		start, ok, err := r.cache.Get(ctx, projectID)
		if err != nil {
			r.logger.WithProject(projectID).Warn("Epoch cache read failed", "error", err.Error())
		} else if ok {
			return Epoch{ProjectID: projectID, Start: start}, nil
		}
	}

	settings, err := r.store.Get(ctx, projectID)
	if errors.Is(err, database.ErrNotFound) {
		today := r.clock.Today()
		settings, err = r.store.Create(ctx, projectID, today)
		if err != nil {
			return Epoch{}, fmt.Errorf("%w: %w", ErrConfigurationMissing, err)
		}
		r.logger.LogBusinessEvent("epoch_created", map[string]interface{}{
			"project_id":                projectID,
			"financial_core_start_date": settings.FinancialCoreStartDate.String(),
		})
	} else if err != nil {
		return Epoch{}, &database.FetchError{Source: "epoch", Page: 1, Err: err}
	}

	epoch := Epoch{ProjectID: projectID, Start: settings.FinancialCoreStartDate}
	r.remember(ctx, epoch)
	return epoch, nil
}

// SetEpoch moves the project's epoch to start. Moving it earlier requires
// allowBackward.
func (r *EpochResolver) SetEpoch(ctx context.Context, projectID string, start civil.Date, allowBackward bool) (Epoch, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return Epoch{}, ErrInvalidProject
	}
	if !start.IsValid() {
		return Epoch{}, fmt.Errorf("%w: financial core start date %q", ErrInvalidRange, start.String())
	}

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, projectID)
		if err != nil {
			return Epoch{}, fmt.Errorf("%w: %w", ErrEpochLocked, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.WithProject(projectID).Warn("Epoch lock release failed", "error", err.Error())
			}
		}()
	}

	current, err := r.store.Get(ctx, projectID)
	if errors.Is(err, database.ErrNotFound) {
		current, err = r.store.Create(ctx, projectID, start)
		if err != nil {
			return Epoch{}, fmt.Errorf("%w: %w", ErrConfigurationMissing, err)
		}
	} else if err != nil {
		return Epoch{}, &database.FetchError{Source: "epoch", Page: 1, Err: err}
	}

	previous := current.FinancialCoreStartDate
	if start.Before(previous) && !allowBackward {
		return Epoch{}, fmt.Errorf("%w: %s is before %s", ErrEpochBackward, start, previous)
	}

	if start != previous {
		if _, err := r.store.Update(ctx, projectID, start); err != nil {
			return Epoch{}, fmt.Errorf("failed to update epoch: %w", err)
		}
	}

	if r.cache != nil {
		if err := r.cache.Invalidate(ctx, projectID); err != nil {
			r.logger.WithProject(projectID).Warn("Epoch cache invalidation failed", "error", err.Error())
		}
	}

	r.logger.LogBusinessEvent("epoch_updated", map[string]interface{}{
		"project_id":     projectID,
		"previous":       previous.String(),
		"current":        start.String(),
		"allow_backward": allowBackward,
	})

	return Epoch{ProjectID: projectID, Start: start}, nil
}

func (r *EpochResolver) remember(ctx context.Context, epoch Epoch) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, epoch.ProjectID, epoch.Start); err != nil {
		r.logger.WithProject(epoch.ProjectID).Warn("Epoch cache write failed", "error", err.Error())
	}
}
