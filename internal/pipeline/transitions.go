// Package pipeline processes offers after discovery: analysis against the
// campaign, match classification, and the auto-apply chain. It owns the
// offer status state machine.
package pipeline

import (
	"context"
	"fmt"

	"github.com/jobscout/jobscout/internal/model"
)

// transitions is the offer state machine. Terminal states have no entries:
// nothing moves an offer out of them. Rejection is reachable from every
// live status so a user can dismiss an offer at any point.
var transitions = map[model.OfferStatus][]model.OfferStatus{
	model.StatusDiscovered: {model.StatusAnalyzing, model.StatusRejected, model.StatusExpired, model.StatusError},
	model.StatusAnalyzing:  {model.StatusMatched, model.StatusRejected, model.StatusExpired, model.StatusError},
	model.StatusMatched:    {model.StatusApplied, model.StatusRejected, model.StatusExpired, model.StatusError},
}

// CanTransition reports whether an offer may move from one status to
// another.
func CanTransition(from, to model.OfferStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status change through the store.
func Transition(ctx context.Context, offers model.OfferStore, offer *model.JobOffer, to model.OfferStatus) error {
	if !CanTransition(offer.Status, to) {
		return fmt.Errorf("offer %s: illegal transition %s -> %s", offer.ID, offer.Status, to)
	}
	if err := offers.UpdateOfferStatus(ctx, offer.ID, to); err != nil {
		return err
	}
	offer.Status = to
	return nil
}
