package stream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.Send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return ev
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for event")
	}
	return Event{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected event %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPublishExceptOrigin(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()
	phone := hub.Register("user-1")
	laptop := hub.Register("user-1")
	other := hub.Register("user-2")
	defer hub.Unregister(phone)
	defer hub.Unregister(laptop)
	defer hub.Unregister(other)

	hub.Publish("user-1", Event{Name: "notification_read", Data: map[string]string{"id": "n1"}}, phone.ConnID)

	if ev := receive(t, laptop); ev.Name != "notification_read" {
		t.Fatalf("unexpected event %q", ev.Name)
	}
	expectNothing(t, phone)
	expectNothing(t, other)
}

func TestHubPublishAllConnections(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()
	a := hub.Register("user-1")
	b := hub.Register("user-1")

	hub.Publish("user-1", Event{Name: "new_message"}, "")
	receive(t, a)
	receive(t, b)
	if a.ConnID == b.ConnID {
		t.Fatalf("connection ids must differ")
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("abc")
	if ch != "optikick:user:abc:events" {
		t.Fatalf("unexpected channel %s", ch)
	}
	if userIDFromChannel(ch) != "abc" {
		t.Fatalf("unexpected user id")
	}
	if userIDFromChannel("bad") != "" {
		t.Fatalf("expected empty user id")
	}
}

func TestUnregisterClosesOnce(t *testing.T) {
	hub := NewHub(nil, nil)
	client := hub.Register("user-2")
	hub.Unregister(client)
	hub.Unregister(client)
	if _, ok := <-client.Send; ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRedisFanOutAcrossInstances(t *testing.T) {
	s := miniredis.RunT(t)
	rdbA := redis.NewClient(&redis.Options{Addr: s.Addr()})
	rdbB := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdbA.Close()
	defer rdbB.Close()

	hubA := NewHub(rdbA, nil)
	hubB := NewHub(rdbB, nil)
	defer hubA.Close()
	defer hubB.Close()
	<-hubA.ready
	<-hubB.ready

	local := hubA.Register("user-1")
	remote := hubB.Register("user-1")
	skipped := hubB.Register("user-1")

	hubA.Publish("user-1", Event{Name: "notification_pinned"}, skipped.ConnID)

	if ev := receive(t, local); ev.Name != "notification_pinned" {
		t.Fatalf("unexpected local event %q", ev.Name)
	}
	if ev := receive(t, remote); ev.Name != "notification_pinned" {
		t.Fatalf("unexpected remote event %q", ev.Name)
	}
	expectNothing(t, skipped)
	// the origin instance ignores its own redis echo
	expectNothing(t, local)
}

func TestHubRedisPublishError(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer client.Close()

	hub := NewHub(client, nil)
	defer hub.Close()
	node := hub.Register("user-bad")
	defer hub.Unregister(node)

	hub.Publish("user-bad", Event{Name: "ping"}, "")
	receive(t, node)
}
