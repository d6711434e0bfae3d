package finance

import (
	"cloud.google.com/go/civil"
	"github.com/irfndi/funnel-finance-go/internal/models"
)

// Classify splits requested at the epoch and at today and labels the
// outcome. It performs no I/O.
//
// Live covers today when the range includes it. Core covers
// [max(start, epoch), min(end, today-1)] when that window is non-empty.
// A range ending before the epoch, or starting after today, yields
// historical-only with no reconciled data.
func Classify(requested models.DateRange, epoch, today civil.Date) models.Classification {
	c := models.Classification{
		Requested:      requested,
		Epoch:          epoch,
		Today:          today,
		LegacyExcluded: requested.Start.Before(epoch),
	}

	if !requested.Valid() {
		c.Mode = models.ModeHistoricalOnly
		c.TrustLevel = models.TrustUnavailable
		return c
	}

	c.HasLive = !requested.End.Before(today) && !requested.Start.After(today)

	coreEnd := requested.End
	if !requested.End.Before(today) {
		coreEnd = today.AddDays(-1)
	}
	coreStart := requested.Start
	if coreStart.Before(epoch) {
		coreStart = epoch
	}
	c.HasCore = !coreEnd.Before(requested.Start) && !coreEnd.Before(epoch)

	if c.HasCore {
		c.CoreRange = &models.DateRange{Start: coreStart, End: coreEnd}
	}
	if c.HasLive {
		liveDay := today
		c.LiveDay = &liveDay
	}

	switch {
	case c.HasCore && c.HasLive:
		c.Mode = models.ModeMixed
		c.TrustLevel = models.TrustMixed
	case c.HasLive:
		c.Mode = models.ModeLiveOnly
		c.TrustLevel = models.TrustEstimated
	case c.HasCore:
		c.Mode = models.ModeHistoricalOnly
		c.TrustLevel = models.TrustReconciled
	default:
		c.Mode = models.ModeHistoricalOnly
		c.TrustLevel = models.TrustUnavailable
	}

	return c
}

// AISafeRange clamps requested to [max(start, epoch), min(end, today-1)].
// It returns false when nothing remains.
func AISafeRange(requested models.DateRange, epoch, today civil.Date) (models.DateRange, bool) {
	r := requested
	if r.Start.Before(epoch) {
		r.Start = epoch
	}
	yesterday := today.AddDays(-1)
	if r.End.After(yesterday) {
		r.End = yesterday
	}
	if !r.Valid() {
		return models.DateRange{}, false
	}
	return r, true
}
