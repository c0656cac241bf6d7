package deadletter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/trandat/shipper/internal/core/domain"
)

type fakePublisher struct {
	msgs   []domain.DeadLetterMessage
	failOn int // 1-based index of the publish call that fails, 0 = never
	calls  int
}

func (f *fakePublisher) Publish(ctx context.Context, msg domain.DeadLetterMessage) error {
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		return errors.New("queue unavailable")
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func records(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{"id": fmt.Sprintf("r%d", i)}
	}
	return out
}

func TestSink_WriteChunks(t *testing.T) {
	tests := []struct {
		records int
		chunks  int
	}{
		{1, 1},
		{10, 1},
		{11, 2},
		{25, 3},
		{100, 10},
	}

	for _, tt := range tests {
		pub := &fakePublisher{}
		s := NewSink(pub, "cust-1", 10)
		if !s.Write(context.Background(), records(tt.records)) {
			t.Fatalf("%d records: Write returned false", tt.records)
		}
		if len(pub.msgs) != tt.chunks {
			t.Errorf("%d records: %d chunks, want %d", tt.records, len(pub.msgs), tt.chunks)
		}
	}
}

func TestSink_WritePreservesOrder(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSink(pub, "cust-1", 10)

	s.Write(context.Background(), records(25))

	i := 0
	for _, msg := range pub.msgs {
		for _, rec := range msg.Records {
			want := fmt.Sprintf("r%d", i)
			if rec["id"] != want {
				t.Fatalf("record %d out of order: got %v, want %s", i, rec["id"], want)
			}
			i++
		}
	}
	if i != 25 {
		t.Errorf("published %d records, want 25", i)
	}
}

func TestSink_WriteMessageFields(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSink(pub, "cust-1", 10)
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Write(context.Background(), records(3))

	msg := pub.msgs[0]
	if msg.CustomerID != "cust-1" {
		t.Errorf("CustomerID = %q", msg.CustomerID)
	}
	if msg.FailedTimestamp != fixed.Format(time.RFC3339Nano) {
		t.Errorf("FailedTimestamp = %q", msg.FailedTimestamp)
	}
	if msg.Timestamp != float64(fixed.UnixNano())/float64(time.Second) {
		t.Errorf("Timestamp = %v", msg.Timestamp)
	}
}

func TestSink_WriteContinuesPastPublishFailure(t *testing.T) {
	pub := &fakePublisher{failOn: 2}
	s := NewSink(pub, "cust-1", 10)

	ok := s.Write(context.Background(), records(30))

	if ok {
		t.Error("expected false when a chunk fails to publish")
	}
	// Chunks 1 and 3 still make it through.
	if len(pub.msgs) != 2 {
		t.Errorf("published %d chunks, want 2", len(pub.msgs))
	}
	if pub.calls != 3 {
		t.Errorf("publish attempts = %d, want 3", pub.calls)
	}
}

func TestSink_WriteEmptyIsNoop(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSink(pub, "cust-1", 10)

	if !s.Write(context.Background(), nil) {
		t.Error("empty write must report success")
	}
	if pub.calls != 0 {
		t.Errorf("empty write must not publish, got %d calls", pub.calls)
	}
}

func TestSink_WriteNilPublisher(t *testing.T) {
	s := NewSink(nil, "cust-1", 10)

	if s.Write(context.Background(), records(3)) {
		t.Error("expected false with no publisher configured")
	}
}
