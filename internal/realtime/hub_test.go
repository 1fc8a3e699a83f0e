package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestBranchRoom(t *testing.T) {
	if got := BranchRoom("BTech", "AI"); got != "branch:BTech:AI" {
		t.Fatalf("BranchRoom = %q", got)
	}
}

func TestMemoryBrokerRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewMemory(4)
	events, err := broker.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	sent := Event{
		Name:    EventClassLive,
		Rooms:   []string{BranchRoom("BTech", "AI")},
		Payload: map[string]any{"timetableId": "t1"},
	}
	if err := broker.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case got := <-events:
		if got.Name != sent.Name || got.Rooms[0] != sent.Rooms[0] {
			t.Fatalf("received %+v, want %+v", got, sent)
		}
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestMemoryBrokerDropsWhenFull(t *testing.T) {
	broker := NewMemory(1)
	ctx := context.Background()
	// No subscriber draining; second publish must not block.
	done := make(chan struct{})
	go func() {
		_ = broker.Publish(ctx, Event{Name: "a", Rooms: []string{"r"}})
		_ = broker.Publish(ctx, Event{Name: "b", Rooms: []string{"r"}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
}

func TestHubDeliversToRoomMembersOnly(t *testing.T) {
	hub := NewHub()
	member := &client{send: make(chan []byte, 1)}
	outsider := &client{send: make(chan []byte, 1)}
	hub.join(BranchRoom("BTech", "AI"), member)
	hub.join(BranchRoom("BTech", "Cyber"), outsider)

	hub.deliver(Event{
		Name:    EventAttendanceUpdated,
		Rooms:   []string{BranchRoom("BTech", "AI")},
		Payload: map[string]any{"courseId": "c1"},
	})

	select {
	case data := <-member.send:
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("malformed frame: %v", err)
		}
		if f.Event != EventAttendanceUpdated {
			t.Fatalf("frame event = %s", f.Event)
		}
	default:
		t.Fatal("room member received nothing")
	}
	select {
	case <-outsider.send:
		t.Fatal("outsider received an event for another room")
	default:
	}
}

func TestHubDeduplicatesAcrossRooms(t *testing.T) {
	hub := NewHub()
	cl := &client{send: make(chan []byte, 4)}
	hub.join(RoomAdmin, cl)
	hub.join(RoomFaculty, cl)

	hub.deliver(Event{Name: EventTimetableUpdated, Rooms: []string{RoomAdmin, RoomFaculty}})

	if n := len(cl.send); n != 1 {
		t.Fatalf("client in both rooms received %d copies, want 1", n)
	}
}

func TestHubDropInsteadOfBlock(t *testing.T) {
	hub := NewHub()
	cl := &client{send: make(chan []byte, 1)}
	hub.join(RoomAdmin, cl)

	hub.deliver(Event{Name: "first", Rooms: []string{RoomAdmin}})
	// Buffer is now full; this must not block the delivery loop.
	done := make(chan struct{})
	go func() {
		hub.deliver(Event{Name: "second", Rooms: []string{RoomAdmin}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked on a slow client")
	}
}

func TestDropRemovesFromAllRooms(t *testing.T) {
	hub := NewHub()
	cl := &client{send: make(chan []byte, 1)}
	hub.join(RoomAdmin, cl)
	hub.join(RoomFaculty, cl)

	hub.drop(cl)
	if hub.RoomSize(RoomAdmin) != 0 || hub.RoomSize(RoomFaculty) != 0 {
		t.Fatal("dropped client still counted in rooms")
	}
}

func TestNilEmitterIsSafe(t *testing.T) {
	var e *Emitter
	e.Emit(Event{Name: EventClassLive, Rooms: []string{RoomAdmin}}) // must not panic

	e = NewEmitter(nil)
	e.Emit(Event{Name: EventClassLive, Rooms: []string{RoomAdmin}})
}
