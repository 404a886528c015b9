package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AvailabilityChecker answers whether a proposed [start, start+duration)
// interval is free for a dentist. Pure read, no side effects.
type AvailabilityChecker struct {
	repo Repository
}

func NewAvailabilityChecker(repo Repository) *AvailabilityChecker {
	return &AvailabilityChecker{repo: repo}
}

// IsSlotAvailable reports whether the proposed interval is disjoint from every
// existing non-deleted appointment of the dentist. excludeID skips the
// appointment being updated so it never conflicts with itself; pass uuid.Nil
// on create.
//
// Candidates are loaded from a bounded window instead of the proposed
// calendar day: an existing appointment can start up to MaxDurationMin before
// the proposed start and still reach into it, and one starting any time before
// the proposed end can collide, including across midnight.
func (c *AvailabilityChecker) IsSlotAvailable(ctx context.Context, dentistID uuid.UUID, start time.Time, durationMin int, excludeID uuid.UUID) (bool, error) {
	if durationMin <= 0 {
		durationMin = DefaultDurationMin
	}
	end := start.Add(time.Duration(durationMin) * time.Minute)

	windowFrom := start.Add(-MaxDurationMin * time.Minute)
	candidates, err := c.repo.ListDentistAppointmentsInWindow(ctx, dentistID, windowFrom, end)
	if err != nil {
		return false, fmt.Errorf("list candidate appointments: %w", err)
	}

	for _, existing := range candidates {
		if existing.ID == excludeID {
			continue
		}
		if overlaps(start, end, existing.StartTime, existing.EndTime()) {
			return false, nil
		}
	}

	return true, nil
}

// overlaps is the standard half-open interval test: touching endpoints
// (back-to-back appointments) do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return bStart.Before(aEnd) && bEnd.After(aStart)
}
