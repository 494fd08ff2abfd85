// Package reconcile computes which participant is shown in the main view,
// which are shown as minor views, and which streams start or stop playing.
// Everything here is pure: callers apply the returned Plan.
package reconcile

import (
	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/media"
)

// MainTarget is the render target of the main view.
const MainTarget = "main-video"

// MinorTarget is the render target of account's minor view.
func MinorTarget(account string) string { return "video-" + account }

// Lookup resolves an account to its live stream, or nil.
type Lookup func(account string) media.Stream

// View pairs a member with its stream. Stream may be nil before the member
// publishes.
type View struct {
	Member *domain.Member
	Stream media.Stream
}

// Account is the member account, empty for an unset view.
func (v View) Account() string {
	if v.Member == nil {
		return ""
	}
	return v.Member.Account
}

// Play renders Stream on Target. Apply it as stop followed by play.
type Play struct {
	Stream media.Stream
	Target string
}

// Input is the state a reconciliation starts from.
type Input struct {
	PrevMain  View
	PrevMinor []View
	// Roster is the service roster. It decides whether the call dissolves.
	Roster []domain.Member
	// Merged is the service roster merged with locally injected members.
	Merged []domain.Member
	Lookup Lookup
	Self   string
}

// Plan is the outcome of a reconciliation.
type Plan struct {
	// Dissolve means the call is over. No other field is set.
	Dissolve bool
	Main     View
	Minor    []View
	Stop     []media.Stream
	Play     []Play
}

// Dissolved reports whether the roster no longer supports a call: it is
// empty, or some key member is no longer waiting, ringing or talking.
func Dissolved(roster []domain.Member) bool {
	if len(roster) == 0 {
		return true
	}
	for _, m := range roster {
		if m.KeyMember && !m.Status.Active() {
			return true
		}
	}
	return false
}

// Reconcile recomputes the views from the current roster and streams.
// The dissolve check runs before any diffing.
func Reconcile(in Input) Plan {
	if Dissolved(in.Roster) {
		return Plan{Dissolve: true}
	}
	lookup := in.Lookup
	if lookup == nil {
		lookup = func(string) media.Stream { return nil }
	}

	var plan Plan
	_, removed := Diff(members(in.PrevMinor), in.Merged)

	prev := in.PrevMain.Account()
	if cur, ok := domain.FindMember(in.Merged, prev); ok && prev != "" {
		plan.Main = View{Member: &cur, Stream: lookup(cur.Account)}
	} else {
		if in.PrevMain.Stream != nil {
			plan.Stop = append(plan.Stop, in.PrevMain.Stream)
		}
		if m := DefaultMember(in.Merged, in.Self); m != nil {
			plan.Main = View{Member: m, Stream: lookup(m.Account)}
		}
	}

	if plan.Main.Stream != nil {
		plan.Play = append(plan.Play, Play{Stream: plan.Main.Stream, Target: MainTarget})
	}

	for _, m := range removed {
		if s := streamOf(in.PrevMinor, m.Account); s != nil {
			plan.Stop = append(plan.Stop, s)
		}
	}

	plan.Minor, plan.Play = minors(in.Merged, plan.Main.Account(), lookup, plan.Play)
	return plan
}

// Select makes account the main view. It reports false when account is not
// in merged.
func Select(prevMain View, account string, merged []domain.Member, lookup Lookup) (Plan, bool) {
	m, ok := domain.FindMember(merged, account)
	if !ok {
		return Plan{}, false
	}
	if lookup == nil {
		lookup = func(string) media.Stream { return nil }
	}

	var plan Plan
	if prevMain.Stream != nil {
		plan.Stop = append(plan.Stop, prevMain.Stream)
	}
	plan.Main = View{Member: &m, Stream: lookup(m.Account)}
	if plan.Main.Stream != nil {
		plan.Play = append(plan.Play, Play{Stream: plan.Main.Stream, Target: MainTarget})
	}
	plan.Minor, plan.Play = minors(merged, account, lookup, plan.Play)
	return plan, true
}

// DefaultMember picks the main view when none is set: the first key member
// other than self, then the first other member, then whoever is left.
func DefaultMember(merged []domain.Member, self string) *domain.Member {
	if len(merged) == 0 {
		return nil
	}
	for i := range merged {
		if merged[i].KeyMember && merged[i].Account != self {
			m := merged[i]
			return &m
		}
	}
	for i := range merged {
		if merged[i].Account != self {
			m := merged[i]
			return &m
		}
	}
	m := merged[0]
	return &m
}

// Diff compares two rosters by account.
func Diff(old, cur []domain.Member) (added, removed []domain.Member) {
	oldSet := make(map[string]struct{}, len(old))
	for _, m := range old {
		oldSet[m.Account] = struct{}{}
	}
	curSet := make(map[string]struct{}, len(cur))
	for _, m := range cur {
		curSet[m.Account] = struct{}{}
		if _, ok := oldSet[m.Account]; !ok {
			added = append(added, m)
		}
	}
	for _, m := range old {
		if _, ok := curSet[m.Account]; !ok {
			removed = append(removed, m)
		}
	}
	return added, removed
}

func minors(merged []domain.Member, main string, lookup Lookup, plays []Play) ([]View, []Play) {
	views := make([]View, 0, len(merged))
	for i := range merged {
		m := merged[i]
		if m.Account == main {
			continue
		}
		s := lookup(m.Account)
		views = append(views, View{Member: &m, Stream: s})
		if s != nil {
			plays = append(plays, Play{Stream: s, Target: MinorTarget(m.Account)})
		}
	}
	return views, plays
}

func members(views []View) []domain.Member {
	out := make([]domain.Member, 0, len(views))
	for _, v := range views {
		if v.Member != nil {
			out = append(out, *v.Member)
		}
	}
	return out
}

func streamOf(views []View, account string) media.Stream {
	for _, v := range views {
		if v.Account() == account {
			return v.Stream
		}
	}
	return nil
}
