package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/curator/internal/models"
)

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishChange_TypesAndPayload(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(models.VaultChange{Type: models.ChangeDelete, Path: "dir/a.md", Filename: "a.md"})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: "+EventChangeDeleted+"\n") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"dir/a.md"`) || !strings.Contains(s, `"type":"delete"`) {
			t.Errorf("missing change data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	for kind, want := range map[models.ChangeType]string{
		models.ChangeCreate: EventChangeCreated,
		models.ChangeModify: EventChangeModified,
		models.ChangeDelete: EventChangeDeleted,
	} {
		if got := changeEventType(kind); got != want {
			t.Errorf("changeEventType(%s) = %s, want %s", kind, got, want)
		}
	}
}

func TestPublishChange_StaleThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(models.VaultChange{Type: models.ChangeCreate, Path: "a.md"})
	b.PublishChange(models.VaultChange{Type: models.ChangeModify, Path: "b.md"})

	time.Sleep(50 * time.Millisecond)
	stale, changes := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+EventOrphansStale) {
			stale++
		} else {
			changes++
		}
	}
	if changes != 2 {
		t.Errorf("change events = %d, want 2", changes)
	}
	if stale != 1 {
		t.Errorf("orphans.stale events = %d, want 1 (throttled)", stale)
	}
}

func TestPublishRun(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishRun(&models.Run{ID: "r1", NoteCount: 3, Improvements: make([]models.Improvement, 2)})
	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: "+EventAnalysisCompleted) || !strings.Contains(s, `"improvements":2`) {
			t.Errorf("unexpected message %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: EventAnalysisCompleted, Data: map[string]string{"run_id": "x"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if body := w.Body.String(); !strings.Contains(body, "event: "+EventAnalysisCompleted) {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// 64-slot client buffer; the extra events must not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: EventAnalysisCompleted, Data: map[string]string{}})
	b.PublishChange(models.VaultChange{Type: models.ChangeModify, Path: "x.md"})
}
