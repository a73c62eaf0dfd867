package stratum

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestParts_OrderBySizeDescThenIndex(t *testing.T) {
	// Equal-size parts keep submission order among themselves; the smaller
	// (final) part sorts last regardless of when it was recorded.
	var p Parts
	p.Put(0, PartID{ContentID: "a", Size: 100})
	p.Put(1, PartID{ContentID: "b", Size: 50})
	p.Put(2, PartID{ContentID: "c", Size: 100})
	p.Put(3, PartID{ContentID: "d", Size: 100})

	parts, err := p.Finish(4)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	expected := []string{"a", "c", "d", "b"}
	for i, id := range expected {
		if parts[i].ContentID != id {
			t.Errorf("parts[%d] = %q, want %q", i, parts[i].ContentID, id)
		}
	}
}

func TestParts_OutOfOrderRecording(t *testing.T) {
	var p Parts
	p.Put(2, PartID{ContentID: "c", Size: 10})
	p.Put(0, PartID{ContentID: "a", Size: 10})
	p.Put(1, PartID{ContentID: "b", Size: 10})

	parts, err := p.Finish(3)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	for i, id := range []string{"a", "b", "c"} {
		if parts[i].ContentID != id {
			t.Errorf("parts[%d] = %q, want %q", i, parts[i].ContentID, id)
		}
	}
}

func TestParts_Missing(t *testing.T) {
	var p Parts
	p.Put(0, PartID{ContentID: "a", Size: 10})

	if _, err := p.Finish(2); !errors.Is(err, ErrMissingPart) {
		t.Errorf("expected ErrMissingPart, got %v", err)
	}
}

func TestParts_DuplicateIndexCountsAsMissing(t *testing.T) {
	var p Parts
	p.Put(0, PartID{ContentID: "a", Size: 10})
	p.Put(0, PartID{ContentID: "a2", Size: 10})
	p.Put(1, PartID{ContentID: "b", Size: 10})

	if _, err := p.Finish(2); !errors.Is(err, ErrMissingPart) {
		t.Errorf("expected ErrMissingPart for duplicate index, got %v", err)
	}
}

func TestParts_FinishClearsLedger(t *testing.T) {
	var p Parts
	p.Put(0, PartID{ContentID: "a", Size: 10})
	if _, err := p.Finish(1); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if _, err := p.Finish(1); !errors.Is(err, ErrMissingPart) {
		t.Errorf("ledger not cleared: got %v", err)
	}
}

func TestParts_ConcurrentPut(t *testing.T) {
	const n = 64
	var p Parts

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			size := int64(100)
			if idx == n-1 {
				size = 7 // shorter final part
			}
			p.Put(idx, PartID{ContentID: fmt.Sprintf("part-%d", idx), Size: size})
		}(i)
	}
	wg.Wait()

	parts, err := p.Finish(n)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	for i := 0; i < n; i++ {
		want := fmt.Sprintf("part-%d", i)
		if parts[i].ContentID != want {
			t.Errorf("parts[%d] = %q, want %q", i, parts[i].ContentID, want)
		}
	}
}
