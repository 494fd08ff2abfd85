package call

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/reconcile"
)

// UpdateView refreshes the roster and reconciles the views. When the roster
// no longer supports a call it leaves with a cancel disposition.
// Concurrent callers share one reconciliation.
func (o *Orchestrator) UpdateView(ctx context.Context) error {
	_, err := o.updateView(ctx)
	return err
}

// updateView reports whether the call dissolved.
func (o *Orchestrator) updateView(ctx context.Context) (bool, error) {
	v, err, _ := o.flight.Do(flightView, func() (any, error) {
		return o.reconcile(ctx)
	})
	dissolved, _ := v.(bool)
	return dissolved, err
}

func (o *Orchestrator) reconcile(ctx context.Context) (bool, error) {
	o.mu.Lock()
	roomID, sess := o.roomID, o.sess
	o.mu.Unlock()
	if roomID == 0 || sess == nil {
		return false, nil
	}

	roster, err := o.records.RoomMembers(ctx, roomID)
	if err != nil {
		o.log.Warn().Err(err).Int64("room_id", roomID).Msg("fetch room members")
		return false, fmt.Errorf("room members: %w", err)
	}

	o.viewMu.Lock()
	o.mu.Lock()
	if o.roomID != roomID {
		o.mu.Unlock()
		o.viewMu.Unlock()
		return false, nil
	}
	o.members = roster
	in := reconcile.Input{
		PrevMain:  o.main,
		PrevMinor: o.minor,
		Roster:    roster,
		Merged:    domain.MergeMembers(roster, o.extra),
		Lookup:    sess.StreamOf,
		Self:      o.self.Account,
	}
	o.mu.Unlock()

	plan := reconcile.Reconcile(in)
	if plan.Dissolve {
		o.viewMu.Unlock()
		o.log.Info().Int64("room_id", roomID).Msg("call dissolved by roster")
		o.Leave(ctx, domain.CancelCancel) //nolint:errcheck // logged by leave
		return true, nil
	}
	o.apply(ctx, plan)
	o.viewMu.Unlock()
	return false, nil
}

// SelectMember puts account in the main view.
func (o *Orchestrator) SelectMember(ctx context.Context, account string) error {
	o.viewMu.Lock()
	defer o.viewMu.Unlock()

	o.mu.Lock()
	sess, prev := o.sess, o.main
	merged := domain.MergeMembers(o.members, o.extra)
	o.mu.Unlock()
	if sess == nil {
		return ErrNoSession
	}

	plan, ok := reconcile.Select(prev, account, merged, sess.StreamOf)
	if !ok {
		return fmt.Errorf("select %q: %w", account, ErrUnknownMember)
	}
	o.apply(ctx, plan)
	return nil
}

// apply runs a plan: stops first, then stop and play for each play entry.
// Callers hold viewMu.
func (o *Orchestrator) apply(ctx context.Context, plan reconcile.Plan) {
	for _, s := range plan.Stop {
		s.Stop()
	}
	for _, p := range plan.Play {
		p.Stream.Stop()
		if err := p.Stream.Play(ctx, p.Target); err != nil {
			o.log.Warn().Err(err).Str("stream_id", p.Stream.ID()).Str("target", p.Target).Msg("play stream")
		}
	}

	o.mu.Lock()
	o.main = plan.Main
	o.minor = plan.Minor
	o.mu.Unlock()
}
