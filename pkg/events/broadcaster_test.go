package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/finding"
)

func collect(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestSubscribeUnknownScan(t *testing.T) {
	t.Parallel()

	b := New(nil)
	_, _, err := b.Subscribe("nope")
	if !errors.Is(err, finding.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSubscriberGetsConnectedFirst(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Open("s1")

	ch, cancel, err := b.Subscribe("s1")
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	first := <-ch
	if first.Type != TypeConnected {
		t.Errorf("first event = %s, want connected", first.Type)
	}
	if first.Scan != "s1" {
		t.Errorf("scan_id = %s", first.Scan)
	}
}

func TestPublishFanOut(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Open("s1")

	ch1, cancel1, _ := b.Subscribe("s1")
	ch2, cancel2, _ := b.Subscribe("s1")
	defer cancel1()
	defer cancel2()

	ctx := context.Background()
	b.Publish(ctx, NewStarted("s1", "nuclei"))
	b.Publish(ctx, NewSuccess("s1", "nuclei", 2))
	b.Publish(ctx, NewComplete("s1", 2))

	got1 := collect(ch1)
	got2 := collect(ch2)

	wantTypes := []Type{TypeConnected, TypeStarted, TypeSuccess, TypeComplete}
	for name, got := range map[string][]Event{"sub1": got1, "sub2": got2} {
		if len(got) != len(wantTypes) {
			t.Fatalf("%s: got %d events, want %d", name, len(got), len(wantTypes))
		}
		for i, want := range wantTypes {
			if got[i].Type != want {
				t.Errorf("%s[%d] = %s, want %s", name, i, got[i].Type, want)
			}
		}
	}
}

func TestEventsArriveInPublishOrder(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Open("s1")
	ch, cancel, _ := b.Subscribe("s1")
	defer cancel()

	ctx := context.Background()
	for _, tool := range []string{"a", "b", "c", "d"} {
		b.Publish(ctx, NewStarted("s1", tool))
	}
	b.Publish(ctx, NewComplete("s1", 0))

	got := collect(ch)
	wantTools := []string{"", "a", "b", "c", "d", ""} // connected, 4 starts, complete
	if len(got) != len(wantTools) {
		t.Fatalf("got %d events, want %d", len(got), len(wantTools))
	}
	for i, tool := range wantTools {
		if got[i].Tool != tool {
			t.Errorf("event %d tool = %q, want %q", i, got[i].Tool, tool)
		}
	}
}

func TestSlowSubscriberNeverBlocksPublish(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Open("s1")

	// Subscribe but never read: the queue fills and overflow drops.
	_, cancel, _ := b.Subscribe("s1")
	defer cancel()

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < defaults.SubscriberBuffer*3; i++ {
			b.Publish(ctx, NewInfo("s1", "tick"))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}
}

func TestCompleteClosesStream(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Open("s1")
	ch, cancel, _ := b.Subscribe("s1")
	defer cancel()

	ctx := context.Background()
	b.Publish(ctx, NewComplete("s1", 0))

	got := collect(ch) // returns only once the channel closes
	if got[len(got)-1].Type != TypeComplete {
		t.Errorf("last event = %s, want complete", got[len(got)-1].Type)
	}

	// Events after complete go nowhere and must not panic.
	b.Publish(ctx, NewInfo("s1", "late"))

	if n := b.Subscribers("s1"); n != 0 {
		t.Errorf("subscribers after complete = %d, want 0", n)
	}
}

func TestSubscribeAfterCompleteReplaysTerminal(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Open("s1")
	b.Publish(context.Background(), NewComplete("s1", 4))

	ch, cancel, err := b.Subscribe("s1")
	if err != nil {
		t.Fatalf("subscribe after complete: %v", err)
	}
	defer cancel()

	got := collect(ch)
	if len(got) != 2 {
		t.Fatalf("got %d events, want connected + complete", len(got))
	}
	if got[0].Type != TypeConnected || got[1].Type != TypeComplete {
		t.Errorf("replay = %s, %s", got[0].Type, got[1].Type)
	}
	if got[1].FindingsCount == nil || *got[1].FindingsCount != 4 {
		t.Error("replayed complete must keep its findings count")
	}
}

func TestCancelDetachesSubscriber(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Open("s1")
	ch, cancel, _ := b.Subscribe("s1")

	cancel()
	cancel() // safe twice

	// Only the buffered greeting remains; the range ends because the
	// channel is closed.
	got := collect(ch)
	if len(got) != 1 || got[0].Type != TypeConnected {
		t.Errorf("drained %+v, want just the greeting", got)
	}
	if n := b.Subscribers("s1"); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}

	// Publish after cancel must not panic on the closed channel.
	b.Publish(context.Background(), NewInfo("s1", "tick"))
}

func TestSweepRetiresFinishedStreams(t *testing.T) {
	t.Parallel()

	b := New(nil)
	b.Open("done")
	b.Open("live")
	b.Publish(context.Background(), NewComplete("done", 0))

	if n := b.Sweep(time.Now()); n != 0 {
		t.Errorf("sweep before retention removed %d", n)
	}
	if n := b.Sweep(time.Now().Add(time.Hour)); n != 1 {
		t.Errorf("sweep after retention removed %d, want 1", n)
	}

	// The live stream survives.
	if _, _, err := b.Subscribe("live"); err != nil {
		t.Errorf("live stream gone: %v", err)
	}
	if _, _, err := b.Subscribe("done"); !errors.Is(err, finding.ErrNotFound) {
		t.Errorf("swept stream should be gone, err = %v", err)
	}
}

type recordingHook struct {
	types []Type
	seen  []Event
}

func (h *recordingHook) OnEvent(_ context.Context, ev Event) error {
	h.seen = append(h.seen, ev)
	return nil
}

func (h *recordingHook) Types() []Type { return h.types }

func TestHooksObservePublishedEvents(t *testing.T) {
	t.Parallel()

	all := &recordingHook{}
	onlyComplete := &recordingHook{types: []Type{TypeComplete}}

	b := New(nil)
	b.AttachHook(all)
	b.AttachHook(onlyComplete)
	b.Open("s1")

	ctx := context.Background()
	b.Publish(ctx, NewStarted("s1", "zap"))
	b.Publish(ctx, NewComplete("s1", 0))

	if len(all.seen) != 2 {
		t.Errorf("all-hook saw %d events, want 2", len(all.seen))
	}
	if len(onlyComplete.seen) != 1 || onlyComplete.seen[0].Type != TypeComplete {
		t.Errorf("filtered hook saw %+v", onlyComplete.seen)
	}
}

type failingHook struct{ calls int }

func (h *failingHook) OnEvent(context.Context, Event) error {
	h.calls++
	return errors.New("boom")
}

func (h *failingHook) Types() []Type { return nil }

func TestHookErrorNeverFailsPublish(t *testing.T) {
	t.Parallel()

	h := &failingHook{}
	b := New(nil)
	b.AttachHook(h)
	b.Open("s1")

	ch, cancel, _ := b.Subscribe("s1")
	defer cancel()

	b.Publish(context.Background(), NewStarted("s1", "zap"))

	<-ch // connected
	select {
	case ev := <-ch:
		if ev.Type != TypeStarted {
			t.Errorf("got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered despite hook failure")
	}
	if h.calls != 1 {
		t.Errorf("hook calls = %d, want 1", h.calls)
	}
}
