package zones

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func collection(id string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{1, 2})
	f.Properties["id"] = id
	fc.Append(f)
	return fc
}

type recorder struct {
	transitions [][2]Status
	loading     []bool
}

func (r *recorder) observe(prev, next FetchState) {
	r.transitions = append(r.transitions, [2]Status{prev.Status, next.Status})
	if prev.Loading() != next.Loading() {
		r.loading = append(r.loading, next.Loading())
	}
}

func TestMachineHappyPath(t *testing.T) {
	var rec recorder
	m := NewMachine(rec.observe)
	if m.State().Status != Idle {
		t.Fatalf("initial status = %s", m.State().Status)
	}

	tok := m.Begin()
	if m.State().Status != Pending {
		t.Fatalf("status after Begin = %s", m.State().Status)
	}
	data := collection("a")
	if !m.Resolve(tok, data) {
		t.Fatal("live token must be honored")
	}
	if s := m.State(); !s.Fetched() || s.Data != data {
		t.Fatalf("unexpected state %+v", s)
	}
	if m.Resolve(tok, collection("again")) {
		t.Fatal("a request completes at most once")
	}
	if len(rec.loading) != 2 || !rec.loading[0] || rec.loading[1] {
		t.Fatalf("loading signals = %v, want [true false]", rec.loading)
	}
}

func TestMachineStaleAfterInvalidate(t *testing.T) {
	var rec recorder
	m := NewMachine(rec.observe)

	t1 := m.Begin()
	m.Invalidate()
	before := m.State()
	n := len(rec.transitions)

	if m.Resolve(t1, collection("stale")) {
		t.Fatal("stale token must be dropped")
	}
	if m.Reject(t1, errors.New("late")) {
		t.Fatal("stale token must be dropped")
	}
	after := m.State()
	if after.Status != before.Status || after.Data != before.Data || after.Token != before.Token {
		t.Fatalf("state changed by stale completion: %+v -> %+v", before, after)
	}
	if len(rec.transitions) != n {
		t.Fatal("observer notified for a stale completion")
	}
	if rec.loading[len(rec.loading)-1] {
		t.Fatal("invalidating a pending request must clear loading")
	}
}

func TestMachineSupersededRequest(t *testing.T) {
	var honored []Token
	m := NewMachine(func(prev, next FetchState) {
		if next.Status == Fetched || next.Status == Failed {
			honored = append(honored, next.Token)
		}
	})
	t1 := m.Begin()
	t2 := m.Begin()

	m.Resolve(t2, collection("second"))
	m.Resolve(t1, collection("first"))
	m.Reject(t1, errors.New("first failed"))

	if len(honored) != 1 || honored[0] != t2 {
		t.Fatalf("honored = %v, want only %d", honored, t2)
	}
}

func TestMachineRejectKeepsData(t *testing.T) {
	m := NewMachine(nil)
	data := collection("kept")
	m.Resolve(m.Begin(), data)

	tok := m.Begin()
	if m.State().Data != data {
		t.Fatal("pending must keep prior data visible")
	}
	boom := errors.New("boom")
	if !m.Reject(tok, boom) {
		t.Fatal("live reject must be honored")
	}
	s := m.State()
	if s.Status != Failed || !errors.Is(s.Err, boom) || s.Data != data {
		t.Fatalf("unexpected state %+v", s)
	}

	m.Invalidate()
	if s := m.State(); s.Status != Idle || s.Data != nil || s.Err != nil {
		t.Fatalf("invalidate must clear, got %+v", s)
	}
}

func TestMachineInvalidateIdleIsSilent(t *testing.T) {
	calls := 0
	m := NewMachine(func(prev, next FetchState) { calls++ })
	m.Invalidate()
	m.Invalidate()
	if calls != 0 {
		t.Fatalf("observer called %d times for idle invalidations", calls)
	}
}

func TestMachineRebeginNotifies(t *testing.T) {
	var seen []FetchState
	m := NewMachine(func(prev, next FetchState) { seen = append(seen, next) })
	first := m.Begin()
	second := m.Begin()
	if len(seen) != 2 {
		t.Fatalf("observer called %d times, want 2", len(seen))
	}
	if seen[1].Status != Pending || seen[1].Token != second || second == first {
		t.Fatalf("second notification = %+v, want pending token %d", seen[1], second)
	}
	if m.Resolve(first, collection("old")) {
		t.Fatal("superseded token honored")
	}
	if !m.Resolve(seen[1].Token, collection("new")) {
		t.Fatal("token from the last notification must be live")
	}
}

func TestFetchStateJSON(t *testing.T) {
	b, err := json.Marshal(FetchState{Status: Failed, Err: errors.New("nope"), Token: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"status":"error"`, `"fetched":false`, `"error":"nope"`, `"token":3`} {
		if !strings.Contains(s, want) {
			t.Errorf("%s missing %s", s, want)
		}
	}
}
