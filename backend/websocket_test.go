// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestHub(t *testing.T, backlog int) (*Hub, string) {
	t.Helper()
	hub := NewHub(backlog)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(NewServerHandler(Options{Hub: hub}))
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	var ev Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return ev
}

func TestHubBroadcast(t *testing.T) {
	// A backlog of one makes delivery independent of whether the watcher
	// registered before or after the publish.
	hub, wsURL := startTestHub(t, 1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	hub.Publish(Event{Type: EventRunStarted, RunID: "r1"})
	ev := readEvent(t, conn)
	if ev.Type != EventRunStarted || ev.RunID != "r1" {
		t.Errorf("Unexpected event: %+v", ev)
	}
	if ev.Time == 0 {
		t.Error("Publish should stamp the event time")
	}
}

func TestHubBacklog(t *testing.T) {
	hub, wsURL := startTestHub(t, 2)

	hub.Publish(Event{Type: EventRunStarted, RunID: "r1"})
	hub.Publish(Event{Type: EventScenarioStarted, RunID: "r1", Scenario: "main-menu"})
	hub.Publish(Event{Type: EventStep, RunID: "r1", Scenario: "main-menu", Step: "navigate"})

	// Give the hub loop time to absorb the events before the watcher joins.
	time.Sleep(100 * time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	first := readEvent(t, conn)
	second := readEvent(t, conn)
	if first.Type != EventScenarioStarted || second.Type != EventStep {
		t.Errorf("Backlog = [%s %s], want the last two events", first.Type, second.Type)
	}

	hub.Publish(Event{Type: EventRunFinished, RunID: "r1", Status: StatusPassed})
	live := readEvent(t, conn)
	if live.Type != EventRunFinished || live.Status != StatusPassed {
		t.Errorf("Unexpected live event: %+v", live)
	}
}

func TestHubShutdownClosesWatchers(t *testing.T) {
	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(NewServerHandler(Options{Hub: hub}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to close after hub shutdown")
	}
}

func TestHubBacklogLargerThanSendBuffer(t *testing.T) {
	const n = clientSendBuffer + 16
	hub, wsURL := startTestHub(t, n+20)

	for i := range n {
		hub.Publish(Event{Type: EventStep, RunID: "r1", Step: strconv.Itoa(i)})
	}
	time.Sleep(100 * time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	for i := range n {
		ev := readEvent(t, conn)
		if ev.Step != strconv.Itoa(i) {
			t.Fatalf("Event %d: step = %q, want %d", i, ev.Step, i)
		}
	}

	hub.Publish(Event{Type: EventRunFinished, RunID: "r1"})
	if ev := readEvent(t, conn); ev.Type != EventRunFinished {
		t.Errorf("Unexpected live event after replay: %+v", ev)
	}
}

// drain reads c.send until the hub closes it and returns what was queued.
func drain(t *testing.T, c *wsClient) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("Watcher was not disconnected, got %d events", len(got))
		}
	}
}

func TestHubEvictsSlowWatcherDuringReplay(t *testing.T) {
	hub := NewHub(5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	for i := range 5 {
		hub.Publish(Event{Type: EventStep, Step: strconv.Itoa(i)})
	}
	time.Sleep(100 * time.Millisecond)

	// No pumps run, so nothing drains the two-slot buffer.
	slow := &wsClient{hub: hub, addr: "slow", send: make(chan Event, 2)}
	hub.register <- slow

	got := drain(t, slow)
	if len(got) != 2 || got[0].Step != "0" || got[1].Step != "1" {
		t.Errorf("Replayed %+v, want steps 0 and 1 before disconnect", got)
	}

	// The hub keeps serving after the eviction.
	fast := &wsClient{hub: hub, addr: "fast", send: make(chan Event, 10)}
	hub.register <- fast
	for i := range 5 {
		select {
		case ev, ok := <-fast.send:
			if !ok || ev.Step != strconv.Itoa(i) {
				t.Fatalf("Replay to fast watcher: got %+v (open=%v), want step %d", ev, ok, i)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Fast watcher did not receive step %d", i)
		}
	}
}

func TestHubEvictsSlowWatcherOnBroadcast(t *testing.T) {
	hub := NewHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &wsClient{hub: hub, addr: "slow", send: make(chan Event, 1)}
	hub.register <- slow

	hub.Publish(Event{Type: EventStep, Step: "a"})
	hub.Publish(Event{Type: EventStep, Step: "b"})
	hub.Publish(Event{Type: EventStep, Step: "c"})

	got := drain(t, slow)
	if len(got) != 1 || got[0].Step != "a" {
		t.Errorf("Delivered %+v, want only step a before disconnect", got)
	}
}
