package entity

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type stubEntity struct {
	id    ID
	valid atomic.Bool
}

func newStub(id ID) *stubEntity {
	e := &stubEntity{id: id}
	e.valid.Store(true)
	return e
}

func (e *stubEntity) ID() ID             { return e.id }
func (e *stubEntity) Location() Location { return Location{World: "w"} }
func (e *stubEntity) Valid() bool        { return e.valid.Load() }
func (e *stubEntity) Despawn() error     { e.valid.Store(false); return nil }

func TestPoolReuseBumpsGeneration(t *testing.T) {
	p := NewPool()
	a := p.Create()
	if a.IsZero() {
		t.Fatal("pool handed out the zero id")
	}
	if !p.Alive(a) {
		t.Fatal("fresh id not alive")
	}
	p.Release(a)
	if p.Alive(a) {
		t.Fatal("released id still alive")
	}
	b := p.Create()
	if b.Index() != a.Index() || b.Generation() != a.Generation()+1 {
		t.Fatalf("reused id = %d/%d, want index %d generation %d", b.Index(), b.Generation(), a.Index(), a.Generation()+1)
	}
	p.Release(a) // stale
	if !p.Alive(b) {
		t.Fatal("stale release killed the new id")
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{in: "world,1,2,3", want: Location{World: "world", X: 1, Y: 2, Z: 3}},
		{in: " arena , -1.5, 64 ,10.25", want: Location{World: "arena", X: -1.5, Y: 64, Z: 10.25}},
		{in: "world,1,2", wantErr: true},
		{in: ",1,2,3", wantErr: true},
		{in: "world,a,2,3", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLocation(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrBadLocation) {
				t.Errorf("ParseLocation(%q) err = %v, want ErrBadLocation", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLocation(%q) = %+v, %v; want %+v", tt.in, got, err, tt.want)
		}
	}
}

func TestRegionFloorsNegativeCoordinates(t *testing.T) {
	tests := []struct {
		loc  Location
		want Region
	}{
		{Location{World: "w", X: 0, Z: 15.9}, Region{World: "w", X: 0, Z: 0}},
		{Location{World: "w", X: 16, Z: -0.1}, Region{World: "w", X: 1, Z: -1}},
		{Location{World: "w", X: -16, Z: -17}, Region{World: "w", X: -1, Z: -2}},
	}
	for _, tt := range tests {
		if got := tt.loc.Region(16); got != tt.want {
			t.Errorf("%v.Region(16) = %v, want %v", tt.loc, got, tt.want)
		}
	}
}

func TestSetMembership(t *testing.T) {
	s := NewSet()
	a, b := newStub(1), newStub(2)
	if !s.Add(a) || s.Add(a) {
		t.Fatal("Add did not dedupe by identity")
	}
	s.Add(b)
	if !s.Contains(a) || s.Contains(newStub(3)) || s.Contains(nil) {
		t.Fatal("Contains mismatch")
	}
	if s.Len() != 2 || len(s.Snapshot()) != 2 {
		t.Fatalf("len = %d", s.Len())
	}

	b.valid.Store(false)
	if n := s.CountValid(); n != 1 {
		t.Fatalf("CountValid = %d, want 1", n)
	}
	s.ClearAll()
	if s.Len() != 0 {
		t.Fatal("ClearAll left members")
	}
	if a.valid.Load() != true {
		t.Fatal("ClearAll despawned an entity")
	}
}

func TestValidSequenceIsRestartable(t *testing.T) {
	s := NewSet()
	a, b := newStub(1), newStub(2)
	s.Add(a)
	s.Add(b)
	seq := s.Valid()

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	if n := count(); n != 2 {
		t.Fatalf("first traversal = %d, want 2", n)
	}
	a.valid.Store(false)
	if n := count(); n != 1 {
		t.Fatalf("second traversal = %d, want 1", n)
	}
	for range seq {
		break // early stop must not panic
	}
}

func TestSetConcurrentAdd(t *testing.T) {
	s := NewSet()
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(id ID) {
			defer wg.Done()
			s.Add(newStub(id))
			s.CountValid()
		}(ID(i))
	}
	wg.Wait()
	if s.Len() != 100 {
		t.Fatalf("len = %d, want 100", s.Len())
	}
}
