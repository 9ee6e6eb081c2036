package eventbus

import (
	"testing"
	"time"
)

func TestPublishDeliversToSyncHandlerInOrder(t *testing.T) {
	b := New(nil, "", nil)

	var seen []int
	b.OnEvent(func(ev Event) {
		seen = append(seen, ev.Data.(int))
	})

	for i := 0; i < 5; i++ {
		b.Publish(Event{Type: TypeExecution, Data: i, Timestamp: int64(i)})
	}

	if len(seen) != 5 {
		t.Fatalf("handler saw %d events, want 5", len(seen))
	}
	for i, v := range seen {
		if v != i {
			t.Fatalf("seen[%d] = %d, want %d (handlers must preserve publish order)", i, v, i)
		}
	}
}

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	b := New(nil, "", nil)
	_, ch := b.Subscribe(4)

	b.Publish(Event{Type: TypeNewOrder, Data: "order-1"})

	select {
	case ev := <-ch:
		if ev.Data != "order-1" {
			t.Fatalf("Data = %v, want order-1", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive published event")
	}
}

func TestPublishDropsSlowSubscriberWithoutBlocking(t *testing.T) {
	b := New(nil, "", nil)
	_, ch := b.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: TypeExecution, Data: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a subscriber that never drained its channel")
	}
	<-ch // drain one to prove the channel is still usable, not closed
}

func TestSubscribeReceivesSnapshotOnAttach(t *testing.T) {
	b := New(nil, "", nil)
	want := SnapshotPayload{Symbols: []SymbolSnapshot{{Symbol: "AAPL"}}}
	b.SetSnapshotProvider(func() SnapshotPayload { return want })

	_, ch := b.Subscribe(4)

	select {
	case ev := <-ch:
		if ev.Type != TypeSnapshot {
			t.Fatalf("Type = %v, want TypeSnapshot", ev.Type)
		}
		got, ok := ev.Data.(SnapshotPayload)
		if !ok || len(got.Symbols) != 1 || got.Symbols[0].Symbol != "AAPL" {
			t.Fatalf("Data = %#v, want %#v", ev.Data, want)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive a snapshot on attach")
	}
}

func TestSubscribeWithoutProviderSendsNoSnapshot(t *testing.T) {
	b := New(nil, "", nil)
	_, ch := b.Subscribe(4)

	select {
	case ev := <-ch:
		t.Fatalf("received unexpected event %+v with no snapshot provider set", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(nil, "", nil)
	id, ch := b.Subscribe(1)
	b.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
}
