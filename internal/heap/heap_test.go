package heap

import (
	"sync"
	"testing"
)

func newTestEngine(t *testing.T, regionSize int) (*Engine, *Region) {
	t.Helper()
	e := NewEngine(4, nil)
	r, err := e.table.AddRegion(make([]byte, regionSize), 0)
	if err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	return e, r
}

func TestNodeView(t *testing.T) {
	t.Run("RoundTripsPayloadSizeAndActive", func(t *testing.T) {
		buf := make([]byte, 256)
		r := &Region{buf: buf}
		n := r.nodeAt(0)
		n.setPayloadSize(64)
		n.setActive(false)
		n.initMagic()
		n.initFooter()

		if got := n.payloadSize(); got != 64 {
			t.Fatalf("payloadSize = %d, want 64", got)
		}
		if n.active() {
			t.Fatal("expected inactive")
		}
		if !n.valid() {
			t.Fatal("expected valid boundary tags")
		}

		n.setActive(true)
		if !n.active() {
			t.Fatal("expected active after setActive(true)")
		}
		if got := n.payloadSize(); got != 64 {
			t.Fatalf("payloadSize after setActive = %d, want 64", got)
		}
	})

	t.Run("DetectsCorruptedMagic", func(t *testing.T) {
		buf := make([]byte, 256)
		r := &Region{buf: buf}
		n := r.nodeAt(0)
		n.setPayloadSize(64)
		n.initMagic()
		n.initFooter()
		n.footer().magic = 0

		if n.valid() {
			t.Fatal("expected invalid after corrupting footer magic")
		}
	})
}

func TestRegionInit(t *testing.T) {
	buf := make([]byte, 4096)
	var r Region
	initRegion(&r, buf, FlagWait)

	if !r.flags().Has(FlagActive) {
		t.Fatal("expected FlagActive after initRegion")
	}
	if r.nodesFree != 1 || r.nodesActive != 0 {
		t.Fatalf("nodesFree=%d nodesActive=%d, want 1,0", r.nodesFree, r.nodesActive)
	}
	if count, ok := r.tiles(); !ok || count != 1 {
		t.Fatalf("tiles = (%d, %v), want (1, true)", count, ok)
	}
}

func TestCallocAndFree(t *testing.T) {
	t.Run("BasicRoundTrip", func(t *testing.T) {
		e, _ := newTestEngine(t, 4096)

		p, err := e.Calloc(16, 1, FlagWait)
		if err != nil {
			t.Fatalf("Calloc: %v", err)
		}
		if p.IsNil() {
			t.Fatal("expected non-nil Ptr")
		}
		for _, b := range p.Bytes() {
			if b != 0 {
				t.Fatal("expected zeroed payload")
			}
		}

		if err := e.Free(&p, FlagWait); err != nil {
			t.Fatalf("Free: %v", err)
		}
		if !p.IsNil() {
			t.Fatal("expected Ptr cleared after Free")
		}
	})

	t.Run("DoubleFreeIsFatal", func(t *testing.T) {
		e, _ := newTestEngine(t, 4096)

		p, err := e.Calloc(16, 1, FlagWait)
		if err != nil {
			t.Fatalf("Calloc: %v", err)
		}
		dup := p
		if err := e.Free(&p, FlagWait); err != nil {
			t.Fatalf("Free: %v", err)
		}
		if err := e.Free(&dup, FlagWait); err == nil {
			t.Fatal("expected error on double free")
		}
	})

	t.Run("OverflowingCountIsRejected", func(t *testing.T) {
		e, _ := newTestEngine(t, 4096)
		_, err := e.Calloc(^uint64(0), 2, FlagWait)
		if err == nil {
			t.Fatal("expected overflow error")
		}
	})

	t.Run("ExhaustedRegionReturnsError", func(t *testing.T) {
		e, _ := newTestEngine(t, 256)
		var live []Ptr
		var lastErr error
		for i := 0; i < 64; i++ {
			p, err := e.Calloc(64, 1, FlagWait)
			if err != nil {
				lastErr = err
				break
			}
			live = append(live, p)
		}
		if lastErr == nil {
			t.Fatal("expected eventual exhaustion")
		}
		for i := range live {
			if err := e.Free(&live[i], FlagWait); err != nil {
				t.Fatalf("Free during cleanup: %v", err)
			}
		}
	})

	t.Run("CoalesceReclaimsWholeRegion", func(t *testing.T) {
		e, r := newTestEngine(t, 4096)

		a, err := e.Calloc(64, 1, FlagWait)
		if err != nil {
			t.Fatalf("Calloc a: %v", err)
		}
		b, err := e.Calloc(64, 1, FlagWait)
		if err != nil {
			t.Fatalf("Calloc b: %v", err)
		}

		if err := e.Free(&a, FlagWait); err != nil {
			t.Fatalf("Free a: %v", err)
		}
		if err := e.Free(&b, FlagWait); err != nil {
			t.Fatalf("Free b: %v", err)
		}

		if count, ok := r.tiles(); !ok || count != 1 {
			t.Fatalf("tiles after freeing everything = (%d, %v), want (1, true)", count, ok)
		}
		if r.nodesFree != 1 || r.nodesActive != 0 {
			t.Fatalf("nodesFree=%d nodesActive=%d, want 1,0", r.nodesFree, r.nodesActive)
		}
	})

	t.Run("NaturalAlignment", func(t *testing.T) {
		e, _ := newTestEngine(t, 8192)

		p, err := e.Calloc(64, 1, FlagWait|FlagNatural)
		if err != nil {
			t.Fatalf("Calloc: %v", err)
		}
		if p.addr%64 != 0 {
			t.Fatalf("address 0x%x is not 64-byte aligned", p.addr)
		}
		if err := e.Free(&p, FlagWait); err != nil {
			t.Fatalf("Free: %v", err)
		}
	})
}

func TestDeleteRegionReapsOnceDrained(t *testing.T) {
	e, r := newTestEngine(t, 4096)

	p, err := e.Calloc(64, 1, FlagWait)
	if err != nil {
		t.Fatalf("Calloc: %v", err)
	}

	if err := e.table.DeleteRegion(r); err != nil {
		t.Fatalf("DeleteRegion: %v", err)
	}
	if _, err := e.table.FindFirst(FlagWait); err == nil {
		t.Fatal("expected restricted region to be invisible to FindFirst")
	}

	if err := e.Free(&p, FlagWait); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if r.flags() != 0 {
		t.Fatalf("expected slot cleared after drain, flags = 0x%x", uint32(r.flags()))
	}

	if _, err := e.table.AddRegion(make([]byte, 4096), 0); err != nil {
		t.Fatalf("AddRegion into reclaimed slot: %v", err)
	}
}

func TestConcurrentCallocFree(t *testing.T) {
	e, _ := newTestEngine(t, 1<<20)

	const workers = 16
	const rounds = 200

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				p, err := e.Calloc(32, 1, FlagWait)
				if err != nil {
					t.Errorf("Calloc: %v", err)
					return
				}
				if err := e.Free(&p, FlagWait); err != nil {
					t.Errorf("Free: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
