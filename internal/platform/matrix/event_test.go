package matrix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestPlaintextUnencrypted(t *testing.T) {
	ev := &Event{
		Type:    EventTypeObservation,
		Content: map[string]interface{}{"id": "temperature"},
	}

	typ, content, ok := ev.Plaintext()
	if !ok {
		t.Fatal("expected plaintext to be available")
	}
	if typ != EventTypeObservation {
		t.Errorf("type = %q, want %q", typ, EventTypeObservation)
	}
	if content["id"] != "temperature" {
		t.Errorf("content id = %v, want temperature", content["id"])
	}
	if ev.Pending() {
		t.Error("unencrypted event must not be pending")
	}
}

func TestPlaintextDecryptedEnvelope(t *testing.T) {
	ev := &Event{
		Type:         EventTypeEncrypted,
		Content:      map[string]interface{}{"algorithm": "m.megolm.v1.aes-sha2"},
		ClearType:    EventTypeMessage,
		ClearContent: map[string]interface{}{"msgtype": MsgTypeText, "body": "hello"},
	}

	typ, content, ok := ev.Plaintext()
	if !ok {
		t.Fatal("expected plaintext to be available")
	}
	if typ != EventTypeMessage {
		t.Errorf("type = %q, want %q", typ, EventTypeMessage)
	}
	if content["body"] != "hello" {
		t.Errorf("body = %v, want hello", content["body"])
	}
}

func TestPendingEnvelope(t *testing.T) {
	ev := &Event{Type: EventTypeEncrypted, Content: map[string]interface{}{}}

	if !ev.Pending() {
		t.Error("undecrypted envelope must be pending")
	}
	if _, _, ok := ev.Plaintext(); ok {
		t.Error("pending envelope must not expose plaintext")
	}
}

func TestDisplayNameFallback(t *testing.T) {
	ev := &Event{Sender: "@doc:amp.care"}
	if got := ev.DisplayName(); got != "@doc:amp.care" {
		t.Errorf("DisplayName() = %q, want sender id", got)
	}
	ev.SenderName = "Dr. Demo"
	if got := ev.DisplayName(); got != "Dr. Demo" {
		t.Errorf("DisplayName() = %q, want Dr. Demo", got)
	}
}

func TestClientSendStateEvent(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"event_id": "$ev1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok123", zerolog.Nop())
	id, err := c.SendStateEvent(context.Background(), "!room:amp.care", EventTypeCase, StateKeyCase,
		map[string]interface{}{"title": "Fever"})
	if err != nil {
		t.Fatalf("SendStateEvent: %v", err)
	}
	if id != "$ev1" {
		t.Errorf("event id = %q, want $ev1", id)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	wantPath := "/_matrix/client/v3/rooms/%21room:amp.care/state/care.amp.case/care.amp.case"
	if gotPath != wantPath {
		t.Errorf("path = %q, want %q", gotPath, wantPath)
	}
	if gotBody["title"] != "Fever" {
		t.Errorf("body title = %v", gotBody["title"])
	}
}

func TestClientSendMessageEventUsesFreshTxnIDs(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"event_id": "$ev"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zerolog.Nop())
	for i := 0; i < 2; i++ {
		if _, err := c.SendMessageEvent(context.Background(), "!r:amp.care", EventTypeObservation, map[string]string{}); err != nil {
			t.Fatalf("SendMessageEvent: %v", err)
		}
	}
	if len(paths) != 2 || paths[0] == paths[1] {
		t.Errorf("expected two distinct txn paths, got %v", paths)
	}
	if !strings.Contains(paths[0], "/send/care.amp.observation/") {
		t.Errorf("unexpected send path %q", paths[0])
	}
}

func TestClientSurfacesHomeserverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"errcode": "M_FORBIDDEN", "error": "not in room"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zerolog.Nop())
	_, err := c.SendMessageEvent(context.Background(), "!r:amp.care", EventTypeDone, map[string]bool{"done": true})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "M_FORBIDDEN") {
		t.Errorf("error %q does not carry errcode", err)
	}
}
