package malloc

import "testing"

func TestPagequeue(t *testing.T) {
	pq := &pageQueue{}
	pages := make([]Page, 10)
	for i := range pages {
		pq.pushback(&pages[i])
	}
	if x := pq.len(); x != 10 {
		t.Errorf("expected %v, got %v", 10, x)
	}

	pq.remove(&pages[0]) // head
	pq.remove(&pages[9]) // tail
	pq.remove(&pages[5]) // middle
	if x := pq.len(); x != 7 {
		t.Errorf("expected %v, got %v", 7, x)
	} else if pq.first != &pages[1] {
		t.Errorf("unexpected head")
	} else if pq.last != &pages[8] {
		t.Errorf("unexpected tail")
	}

	pq.pushfront(&pages[0])
	if pq.first != &pages[0] {
		t.Errorf("unexpected head after pushfront")
	}
	for pq.first != nil {
		pq.remove(pq.first)
	}
	if pq.len() != 0 || pq.last != nil {
		t.Errorf("queue not empty")
	}
}

func TestPagequeueAppend(t *testing.T) {
	heap := NewHeap()
	defer heap.Delete()

	var from, to pageQueue
	pages := make([]Page, 6)
	for i := 0; i < 3; i++ {
		from.pushback(&pages[i])
	}
	for i := 3; i < 6; i++ {
		to.pushback(&pages[i])
	}

	if count := to.appendq(heap, &from); count != 3 {
		t.Errorf("expected %v, got %v", 3, count)
	}
	if from.first != nil || from.last != nil {
		t.Errorf("source queue not reset")
	}
	if x := to.len(); x != 6 {
		t.Errorf("expected %v, got %v", 6, x)
	}
	if to.last != &pages[2] {
		t.Errorf("spliced pages not at the tail")
	}
	for i := 0; i < 3; i++ {
		if pages[i].heapload() != heap {
			t.Errorf("page %v owner not re-pointed", i)
		}
	}
	// appending an empty queue is a no-op
	if count := to.appendq(heap, &from); count != 0 {
		t.Errorf("expected %v, got %v", 0, count)
	}
	if x := to.len(); x != 6 {
		t.Errorf("expected %v, got %v", 6, x)
	}
}
