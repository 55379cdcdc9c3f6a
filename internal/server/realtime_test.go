package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/spotguess/internal/session"
	"github.com/playperu/spotguess/internal/spotguess"
)

func TestBrokerPublish(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("s1")
	other := b.Subscribe("s2")

	remaining := 5
	b.Publish("s1", Event{Type: EventTick, Remaining: &remaining})

	select {
	case data := <-a:
		if eventType(data) != EventTick || !strings.Contains(string(data), `"remaining":5`) {
			t.Errorf("event = %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	select {
	case data := <-other:
		t.Errorf("other session received %s", data)
	default:
	}

	b.Drop("s1")
	if _, ok := <-a; ok {
		t.Error("channel still open after drop")
	}
	b.Unsubscribe("s1", a)
	if b.Subscribers("s1") != 0 || b.Subscribers("s2") != 1 {
		t.Errorf("subscribers = %d, %d", b.Subscribers("s1"), b.Subscribers("s2"))
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("s1")
	for range cap(ch) + 5 {
		b.Publish("s1", Event{Type: EventPhase})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered %d of %d", len(ch), cap(ch))
	}
}

func TestRedact(t *testing.T) {
	spot := &spotguess.Spot{
		ID:            "7",
		MapName:       "Harbor",
		CorrectPoints: []spotguess.Point{{X: 1, Y: 2}},
		Images:        spotguess.ImageVariants{Tier0: "a", Tier1: "b", Tier2: "c"},
	}
	tests := []struct {
		phase  spotguess.Phase
		hidden bool
	}{
		{spotguess.PhaseLoading, true},
		{spotguess.PhasePlaying, true},
		{spotguess.PhaseRoundOver, false},
		{spotguess.PhaseResults, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			got := redact(session.Snapshot{Phase: tt.phase, CurrentSpot: spot, CurrentImage: "a"})
			if got.CurrentSpot.ID != "7" || got.CurrentImage != "a" {
				t.Errorf("visible fields lost: %+v", got)
			}
			hidden := got.CurrentSpot.MapName == "" && got.CurrentSpot.CorrectPoints == nil
			if hidden != tt.hidden {
				t.Errorf("hidden = %v, want %v", hidden, tt.hidden)
			}
		})
	}
	if spot.MapName != "Harbor" {
		t.Error("redact modified the source spot")
	}
}

func TestRegistrySweep(t *testing.T) {
	e := newTestEnv(t, testOptions{})
	stale := e.create(t)
	ch := e.broker.Subscribe(stale.ID)

	if n := e.reg.Sweep(time.Now(), time.Hour); n != 0 {
		t.Fatalf("swept %d fresh sessions", n)
	}
	if n := e.reg.Sweep(time.Now().Add(2*time.Hour), time.Hour); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}

	if _, err := e.reg.Get(stale.ID); err != ErrSessionNotFound {
		t.Errorf("get after sweep: %v", err)
	}
	for range ch {
		// Drain the exit event; the loop ends when the broker closes ch.
	}
}

func TestRegistryRunClosesSessions(t *testing.T) {
	e := newTestEnv(t, testOptions{})
	snap := e.create(t)
	s, err := e.reg.Get(snap.ID)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- e.reg.Run(ctx, time.Hour, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}
	if e.reg.Len() != 0 || s.Phase() != spotguess.PhaseExited {
		t.Errorf("after run: %d sessions, phase %s", e.reg.Len(), s.Phase())
	}
}

func TestEventsStream(t *testing.T) {
	e := newTestEnv(t, testOptions{})
	srv := httptest.NewServer(e.h)
	defer srv.Close()
	snap := e.create(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/"+snap.ID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	br := bufio.NewReader(resp.Body)
	line, _ := br.ReadString('\n')
	if line != "event: phase\n" {
		t.Fatalf("first line = %q", line)
	}
	line, _ = br.ReadString('\n')
	var ev Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev); err != nil {
		t.Fatalf("decoding %q: %v", line, err)
	}
	if ev.Snapshot == nil || ev.Snapshot.ID != snap.ID || ev.Snapshot.Phase != spotguess.PhasePlaying {
		t.Fatalf("first event = %+v", ev)
	}
	if ev.Snapshot.CurrentSpot.MapName != "" {
		t.Error("answer leaked in stream")
	}

	if rec := e.do(t, http.MethodDelete, "/api/sessions/"+snap.ID, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}

	// The stream ends once the session is dropped.
	rest, _ := io.ReadAll(br)
	if !strings.Contains(string(rest), `"phase":"exited"`) {
		t.Errorf("exit not streamed: %s", rest)
	}
}

func TestWebSocketCommands(t *testing.T) {
	e := newTestEnv(t, testOptions{})
	srv := httptest.NewServer(e.h)
	defer srv.Close()
	snap := e.create(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + snap.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var msg WSMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != wsSnapshot || msg.Snapshot == nil || msg.Snapshot.ID != snap.ID {
		t.Fatalf("initial message = %+v", msg)
	}

	tests := []struct {
		name       string
		cmd        string
		wantType   string
		wantStatus int
	}{
		{"submit without pin", `{"type": "submit"}`, wsError, http.StatusUnprocessableEntity},
		{"unknown command", `{"type": "teleport"}`, wsError, http.StatusBadRequest},
		{"garbage", `not json`, wsError, http.StatusBadRequest},
		{"advance while playing", `{"type": "advance"}`, wsError, http.StatusConflict},
		{"hint", `{"type": "hint"}`, wsSnapshot, 0},
		{"select map", `{"type": "select_map", "mapId": "sandcastle"}`, wsSnapshot, 0},
	}
	for _, tt := range tests {
		if err := conn.Write(ctx, websocket.MessageText, []byte(tt.cmd)); err != nil {
			t.Fatalf("%s: write: %v", tt.name, err)
		}
		var reply WSMessage
		if err := wsjson.Read(ctx, conn, &reply); err != nil {
			t.Fatalf("%s: read: %v", tt.name, err)
		}
		if reply.Type != tt.wantType || reply.Status != tt.wantStatus {
			t.Errorf("%s: reply = %s %d (%s), want %s %d",
				tt.name, reply.Type, reply.Status, reply.Error, tt.wantType, tt.wantStatus)
		}
	}

	s, _ := e.reg.Get(snap.ID)
	got := s.Snapshot()
	if !got.HintPromptOpen || got.SelectedMapID != "sandcastle" {
		t.Errorf("session state = prompt %v map %q", got.HintPromptOpen, got.SelectedMapID)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	e := newTestEnv(t, testOptions{})
	srv := httptest.NewServer(e.h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/sessions/nope/ws", nil)
	if err == nil {
		t.Fatal("dial succeeded for an unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %+v", resp)
	}
}

func TestWebSocketCommandsKeepSessionAlive(t *testing.T) {
	e := newTestEnv(t, testOptions{})
	srv := httptest.NewServer(e.h)
	defer srv.Close()
	snap := e.create(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/sessions/"+snap.ID+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var msg WSMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)
	for range 3 {
		if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type": "hint_cancel"}`)); err != nil {
			t.Fatal(err)
		}
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatal(err)
		}
	}

	if n := e.reg.Sweep(time.Now(), 100*time.Millisecond); n != 0 {
		t.Fatalf("swept %d sessions in active use over the socket", n)
	}
	if e.reg.Len() != 1 {
		t.Errorf("live sessions = %d, want 1", e.reg.Len())
	}
}

func TestStreamsEndForRemovedSession(t *testing.T) {
	e := newTestEnv(t, testOptions{})
	snap := e.create(t)
	s, err := e.reg.Get(snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	// The request resolved the session before it was removed.
	if err := e.reg.Remove(snap.ID); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+snap.ID+"/events", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKeySession, s))
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handleEvents(e.broker)(rec, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream kept running for a removed session")
	}

	if !strings.Contains(rec.Body.String(), `"phase":"exited"`) {
		t.Errorf("body = %s", rec.Body)
	}
	if n := e.broker.Subscribers(snap.ID); n != 0 {
		t.Errorf("subscribers left = %d", n)
	}
}
