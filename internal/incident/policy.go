package incident

import (
	"pingguard/internal/models"
	"pingguard/pkg/errors"
)

// TransitionPolicy decides whether a status change may be requested. Whether
// a report may jump straight from PENDING to RESOLVED is an open question the
// server never answered, so the client exposes it as configuration instead of
// hard-coding either answer.
type TransitionPolicy interface {
	Allowed(from, to models.Status) error
}

// AnyTransition permits every change between valid statuses.
type AnyTransition struct{}

func (AnyTransition) Allowed(from, to models.Status) error {
	if !to.Valid() {
		return errors.Validationf("unknown status %q", string(to))
	}
	return nil
}

// SequentialTransition only permits adjacent moves along
// PENDING -> IN_PROGRESS -> RESOLVED, plus cancellation from any live state
// and reopening a cancelled report to PENDING.
type SequentialTransition struct{}

var sequentialNext = map[models.Status][]models.Status{
	models.StatusPending:    {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusPending, models.StatusResolved, models.StatusCancelled},
	models.StatusResolved:   {models.StatusInProgress},
	models.StatusCancelled:  {models.StatusPending},
}

func (SequentialTransition) Allowed(from, to models.Status) error {
	if !to.Valid() {
		return errors.Validationf("unknown status %q", string(to))
	}
	if from == to {
		return nil
	}
	for _, next := range sequentialNext[from] {
		if next == to {
			return nil
		}
	}
	return errors.Validationf("transition %s -> %s is not allowed", from.Label(), to.Label())
}

// PolicyByName maps the configured policy name to an implementation,
// defaulting to permissive.
func PolicyByName(name string) TransitionPolicy {
	if name == "sequential" || name == "strict" {
		return SequentialTransition{}
	}
	return AnyTransition{}
}
