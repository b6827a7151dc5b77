package queue

import (
	"context"
	"testing"
	"time"

	"github.com/okian/starboard/internal/domain/model"
)

func event(id string) model.AuditEvent {
	return model.AuditEvent{
		ID:         id,
		Timestamp:  time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
		Action:     model.ActionJoinedChecked,
		Trigger:    model.TriggerJoinedToggle,
		MonthStart: "2025-03-01",
		Date:       "2025-03-14",
		Type:       model.Friday,
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}

	if !q.Enqueue(ctx, event("e1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "e1" {
		t.Errorf("expected e1, got %v", got.ID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, event("e1")) || !q.Enqueue(ctx, event("e2")) {
		t.Fatal("expected first two enqueues to succeed")
	}
	if q.Enqueue(ctx, event("e3")) {
		t.Error("expected enqueue to fail when full")
	}
}

func TestInMemoryQueue_Order(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(8))
	ctx := context.Background()

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		if !q.Enqueue(ctx, event(id)) {
			t.Fatalf("enqueue %s failed", id)
		}
	}
	_ = q.Close()

	var got []string
	for ev := range q.Dequeue(ctx) {
		got = append(got, ev.ID)
	}
	if len(got) != len(ids) {
		t.Fatalf("expected %d events after close, got %d", len(ids), len(got))
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], got[i])
		}
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("new queue should be open")
	}
	if err := q.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("queue should report closed")
	}
	if q.Enqueue(ctx, event("late")) {
		t.Error("enqueue after close should fail")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, event("x")) {
		t.Error("enqueue with cancelled context should fail")
	}
}
