package reconcile

import (
	"testing"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/media"
	"github.com/vovakirdan/wirecall/internal/media/memory"
)

func member(account string, status domain.MemberStatus, key bool) domain.Member {
	return domain.Member{Account: account, Nickname: account, Card: domain.CardDoctor, Status: status, KeyMember: key}
}

type streams map[string]media.Stream

func (s streams) lookup(account string) media.Stream { return s[account] }

func newStreams(accounts ...string) streams {
	out := streams{}
	for _, a := range accounts {
		out[a] = memory.NewStream("s-"+a, a, true, true)
	}
	return out
}

func targets(p Plan) map[string]string {
	out := map[string]string{}
	for _, pl := range p.Play {
		out[pl.Stream.UserID()] = pl.Target
	}
	return out
}

func TestDissolved(t *testing.T) {
	tests := []struct {
		name   string
		roster []domain.Member
		want   bool
	}{
		{"empty roster", nil, true},
		{"all active", []domain.Member{member("a", domain.StatusCalling, true), member("b", domain.StatusBeCalling, true)}, false},
		{"key member hung up", []domain.Member{member("a", domain.StatusCalling, true), member("b", domain.StatusHangUp, true)}, true},
		{"all key members inactive", []domain.Member{member("a", domain.StatusReject, true), member("b", domain.StatusTimeout, true)}, true},
		{"non-key member left", []domain.Member{member("a", domain.StatusCalling, true), member("c", domain.StatusHangUp, false)}, false},
		{"no key members", []domain.Member{member("c", domain.StatusHangUp, false)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dissolved(tt.roster); got != tt.want {
				t.Fatalf("Dissolved() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcileDissolveRunsFirst(t *testing.T) {
	s := newStreams("self", "doc")
	roster := []domain.Member{member("self", domain.StatusCalling, true), member("doc", domain.StatusHangUp, true)}
	prev := roster[1]

	plan := Reconcile(Input{
		PrevMain: View{Member: &prev, Stream: s["doc"]},
		Roster:   roster,
		Merged:   roster,
		Lookup:   s.lookup,
		Self:     "self",
	})
	if !plan.Dissolve {
		t.Fatalf("expected dissolve")
	}
	if len(plan.Stop) != 0 || len(plan.Play) != 0 || plan.Main.Member != nil {
		t.Fatalf("dissolve plan must carry nothing else: %+v", plan)
	}
}

func TestReconcilePicksDefaultMain(t *testing.T) {
	s := newStreams("self", "doc", "nurse")
	roster := []domain.Member{
		member("self", domain.StatusCalling, true),
		member("nurse", domain.StatusCalling, false),
		member("doc", domain.StatusCalling, true),
	}

	plan := Reconcile(Input{Roster: roster, Merged: roster, Lookup: s.lookup, Self: "self"})
	if plan.Dissolve {
		t.Fatalf("unexpected dissolve")
	}
	if plan.Main.Account() != "doc" {
		t.Fatalf("expected key member other than self as main, got %q", plan.Main.Account())
	}
	if plan.Play[0].Target != MainTarget || plan.Play[0].Stream != s["doc"] {
		t.Fatalf("main stream must be played first on the main target: %+v", plan.Play[0])
	}
	got := targets(plan)
	if got["self"] != "video-self" || got["nurse"] != "video-nurse" {
		t.Fatalf("unexpected minor targets: %v", got)
	}
	if len(plan.Minor) != 2 {
		t.Fatalf("minor views must be every merged member except main, got %d", len(plan.Minor))
	}
	for _, v := range plan.Minor {
		if v.Account() == plan.Main.Account() {
			t.Fatalf("main member must not appear in minor views")
		}
	}
}

func TestReconcileKeepsExistingMain(t *testing.T) {
	s := newStreams("self", "doc", "nurse")
	roster := []domain.Member{
		member("self", domain.StatusCalling, true),
		member("doc", domain.StatusCalling, true),
		member("nurse", domain.StatusCalling, false),
	}
	prev := roster[2]

	plan := Reconcile(Input{PrevMain: View{Member: &prev}, Roster: roster, Merged: roster, Lookup: s.lookup, Self: "self"})
	if plan.Main.Account() != "nurse" || plan.Main.Stream != s["nurse"] {
		t.Fatalf("existing main must be kept with a refreshed stream, got %+v", plan.Main)
	}
	if len(plan.Stop) != 0 {
		t.Fatalf("nothing to stop, got %d", len(plan.Stop))
	}
}

func TestReconcileReplacesVanishedMain(t *testing.T) {
	s := newStreams("self", "doc")
	gone := member("nurse", domain.StatusCalling, false)
	goneStream := memory.NewStream("s-nurse", "nurse", true, true)
	roster := []domain.Member{member("self", domain.StatusCalling, true), member("doc", domain.StatusCalling, true)}

	plan := Reconcile(Input{
		PrevMain: View{Member: &gone, Stream: goneStream},
		Roster:   roster,
		Merged:   roster,
		Lookup:   s.lookup,
		Self:     "self",
	})
	if plan.Main.Account() != "doc" {
		t.Fatalf("expected replacement main, got %q", plan.Main.Account())
	}
	if len(plan.Stop) != 1 || plan.Stop[0] != media.Stream(goneStream) {
		t.Fatalf("replaced main stream must be stopped first: %v", plan.Stop)
	}
}

func TestReconcileStopsRemovedMinors(t *testing.T) {
	s := newStreams("self", "doc")
	left := member("guest", domain.StatusCalling, false)
	leftStream := memory.NewStream("s-guest", "guest", true, true)
	main := member("doc", domain.StatusCalling, true)
	self := member("self", domain.StatusCalling, true)
	roster := []domain.Member{self, main}

	plan := Reconcile(Input{
		PrevMain:  View{Member: &main, Stream: s["doc"]},
		PrevMinor: []View{{Member: &self, Stream: s["self"]}, {Member: &left, Stream: leftStream}},
		Roster:    roster,
		Merged:    roster,
		Lookup:    s.lookup,
		Self:      "self",
	})
	if len(plan.Stop) != 1 || plan.Stop[0] != media.Stream(leftStream) {
		t.Fatalf("removed member stream must be stopped: %v", plan.Stop)
	}
	if _, ok := targets(plan)["guest"]; ok {
		t.Fatalf("removed member must not be played")
	}
}

func TestReconcileMergesExtraMembers(t *testing.T) {
	s := newStreams("self", "doc", "extra")
	roster := []domain.Member{member("self", domain.StatusCalling, true), member("doc", domain.StatusCalling, true)}
	merged := domain.MergeMembers(roster, []domain.Member{member("extra", domain.StatusWaitCall, false)})

	plan := Reconcile(Input{Roster: roster, Merged: merged, Lookup: s.lookup, Self: "self"})
	if targets(plan)["extra"] != "video-extra" {
		t.Fatalf("extra member must get a minor view: %v", targets(plan))
	}
}

func TestReconcileMembersWithoutStreams(t *testing.T) {
	roster := []domain.Member{member("self", domain.StatusCalling, true), member("doc", domain.StatusBeCalling, true)}

	plan := Reconcile(Input{Roster: roster, Merged: roster, Self: "self"})
	if plan.Main.Account() != "doc" || plan.Main.Stream != nil {
		t.Fatalf("main view may exist before its stream: %+v", plan.Main)
	}
	if len(plan.Play) != 0 || len(plan.Minor) != 1 {
		t.Fatalf("nothing playable yet: %+v", plan)
	}
}

func TestDefaultMember(t *testing.T) {
	tests := []struct {
		name   string
		merged []domain.Member
		want   string
	}{
		{"empty", nil, ""},
		{"key member other than self", []domain.Member{member("self", 30, true), member("a", 30, false), member("b", 30, true)}, "b"},
		{"self alone", []domain.Member{member("self", 30, true)}, "self"},
		{"first other without key", []domain.Member{member("self", 30, true), member("a", 30, false), member("b", 30, false)}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultMember(tt.merged, "self")
			if tt.want == "" {
				if got != nil {
					t.Fatalf("expected nil, got %q", got.Account)
				}
				return
			}
			if got == nil || got.Account != tt.want {
				t.Fatalf("DefaultMember() = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	s := newStreams("self", "doc", "nurse")
	merged := []domain.Member{member("self", 30, true), member("doc", 30, true), member("nurse", 30, false)}
	prev := merged[1]

	plan, ok := Select(View{Member: &prev, Stream: s["doc"]}, "nurse", merged, s.lookup)
	if !ok {
		t.Fatalf("select of a roster member must succeed")
	}
	if plan.Main.Account() != "nurse" {
		t.Fatalf("expected nurse as main, got %q", plan.Main.Account())
	}
	if len(plan.Stop) != 1 || plan.Stop[0] != s["doc"] {
		t.Fatalf("previous main stream must be stopped")
	}
	got := targets(plan)
	if got["nurse"] != MainTarget || got["doc"] != "video-doc" {
		t.Fatalf("unexpected targets: %v", got)
	}

	if _, ok := Select(View{}, "stranger", merged, s.lookup); ok {
		t.Fatalf("select of an unknown account must fail")
	}
}

func TestDiff(t *testing.T) {
	old := []domain.Member{member("a", 30, false), member("b", 30, false)}
	cur := []domain.Member{member("b", 30, false), member("c", 30, false)}

	added, removed := Diff(old, cur)
	if len(added) != 1 || added[0].Account != "c" {
		t.Fatalf("unexpected added: %v", added)
	}
	if len(removed) != 1 || removed[0].Account != "a" {
		t.Fatalf("unexpected removed: %v", removed)
	}
}
