package bot

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ollkyy/scoutbot/internal/models"
	"github.com/ollkyy/scoutbot/internal/records"
	"github.com/ollkyy/scoutbot/internal/services"
	"github.com/ollkyy/scoutbot/internal/transport"
)

type fakeSent struct {
	To      models.Identity
	Text    string
	Buttons [][]transport.Button
	Ref     transport.MessageRef
}

type fakeAdapter struct {
	mu      sync.Mutex
	nextID  int
	sent    []fakeSent
	edited  map[transport.MessageRef]string
	cleared map[transport.MessageRef]bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		edited:  map[transport.MessageRef]string{},
		cleared: map[transport.MessageRef]bool{},
	}
}

func (f *fakeAdapter) Send(chat models.Identity, text string, buttons [][]transport.Button) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ref := transport.MessageRef{Chat: chat, Message: f.nextID}
	f.sent = append(f.sent, fakeSent{To: chat, Text: text, Buttons: buttons, Ref: ref})
	return ref, nil
}

func (f *fakeAdapter) EditText(ref transport.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited[ref] = text
	return nil
}

func (f *fakeAdapter) ClearButtons(ref transport.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared[ref] = true
	return nil
}

func (f *fakeAdapter) Events() <-chan transport.Event {
	ch := make(chan transport.Event)
	close(ch)
	return ch
}

func (f *fakeAdapter) lastTo(chat models.Identity) (fakeSent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].To == chat {
			return f.sent[i], true
		}
	}
	return fakeSent{}, false
}

func (f *fakeAdapter) cardFor(t *testing.T, reviewer models.Identity) transport.MessageRef {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		if m.To == reviewer && len(m.Buttons) > 0 {
			return m.Ref
		}
	}
	t.Fatalf("no review card delivered to %s", reviewer)
	return transport.MessageRef{}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeAdapter, *records.FileStore) {
	t.Helper()
	store, err := records.OpenFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tx := newFakeAdapter()
	reviewers := []models.Identity{1, 2}
	convo := services.NewConversationService()
	review := services.NewReviewService(store, tx, reviewers)
	return NewDispatcher(tx, convo, review, reviewers), tx, store
}

func text(from models.Identity, s string) transport.Event {
	return transport.Event{Kind: transport.EventText, From: from, Text: s}
}

func command(from models.Identity, cmd string) transport.Event {
	return transport.Event{Kind: transport.EventCommand, From: from, Command: cmd}
}

func callback(from models.Identity, data string, ref transport.MessageRef) transport.Event {
	return transport.Event{Kind: transport.EventCallback, From: from, Data: data, Ref: ref}
}

func TestDispatcherFullApplicationFlow(t *testing.T) {
	d, tx, store := newTestDispatcher(t)
	applicant := models.Identity(42)

	d.dispatch(command(applicant, "start"))
	greetingMsg, ok := tx.lastTo(applicant)
	if !ok || len(greetingMsg.Buttons) == 0 {
		t.Fatalf("greeting = %+v, want message with buttons", greetingMsg)
	}

	d.dispatch(callback(applicant, "begin", greetingMsg.Ref))
	if !tx.cleared[greetingMsg.Ref] {
		t.Fatal("greeting buttons should be revoked once pressed")
	}
	d.dispatch(text(applicant, "19"))
	d.dispatch(text(applicant, "3 hours"))
	d.dispatch(text(applicant, "none yet"))

	if last, _ := tx.lastTo(applicant); last.Text != completedReply {
		t.Fatalf("applicant reply = %q, want completion notice", last.Text)
	}
	submitted, _ := store.ListSubmitted()
	if _, ok := submitted[applicant]; !ok {
		t.Fatal("completed submission was not recorded")
	}

	// Both reviewers got an actionable card; reviewer 1 accepts.
	ref1 := tx.cardFor(t, 1)
	ref2 := tx.cardFor(t, 2)
	d.dispatch(callback(1, "accept:42", ref1))

	if _, ok, _ := store.AcceptedAt(applicant); !ok {
		t.Fatal("accept was not persisted")
	}
	if !tx.cleared[ref1] || !tx.cleared[ref2] {
		t.Fatal("both review cards should have buttons revoked")
	}
	if last, _ := tx.lastTo(2); !strings.Contains(last.Text, "accepted by reviewer 1") {
		t.Fatalf("reviewer 2 follow-up = %q, want outcome announcement", last.Text)
	}
	if last, _ := tx.lastTo(applicant); !strings.Contains(last.Text, "accepted") {
		t.Fatalf("applicant notice = %q, want acceptance", last.Text)
	}

	// A repeated accept is a no-op with an explicit notice.
	d.dispatch(callback(1, "accept:42", ref1))
	if edited := tx.edited[ref1]; !strings.Contains(edited, "Already decided") {
		t.Fatalf("repeat accept card = %q, want already-decided notice", edited)
	}
}

func TestDispatcherIgnoresTextWhileIdle(t *testing.T) {
	d, tx, _ := newTestDispatcher(t)
	d.dispatch(text(42, "hello?"))
	if len(tx.sent) != 0 {
		t.Fatalf("idle text should produce no replies, got %v", tx.sent)
	}
}

func TestDispatcherCancelCallback(t *testing.T) {
	d, tx, _ := newTestDispatcher(t)
	applicant := models.Identity(42)

	d.dispatch(command(applicant, "start"))
	greetingMsg, _ := tx.lastTo(applicant)
	d.dispatch(callback(applicant, "begin", greetingMsg.Ref))
	d.dispatch(text(applicant, "19"))
	d.dispatch(command(applicant, "cancel"))

	if last, _ := tx.lastTo(applicant); last.Text != cancelledReply {
		t.Fatalf("cancel reply = %q, want %q", last.Text, cancelledReply)
	}
	before := len(tx.sent)
	d.dispatch(text(applicant, "a late answer"))
	if len(tx.sent) != before {
		t.Fatal("answers after cancel should be ignored until a new begin")
	}
}

func TestDispatcherStatusCommand(t *testing.T) {
	d, tx, store := newTestDispatcher(t)

	d.dispatch(command(99, "status"))
	if last, _ := tx.lastTo(99); last.Text != deniedReply {
		t.Fatalf("non-reviewer status reply = %q, want denial", last.Text)
	}

	d.dispatch(command(1, "status"))
	if last, _ := tx.lastTo(1); !strings.Contains(last.Text, "No accepted applications") {
		t.Fatalf("empty status = %q, want empty-list notice", last.Text)
	}

	if err := store.MarkAccepted(42, mustParse(t, "2025-09-17T15:30:00Z")); err != nil {
		t.Fatalf("seed accepted: %v", err)
	}
	d.dispatch(command(2, "status"))
	last, _ := tx.lastTo(2)
	if !strings.Contains(last.Text, "ID 42") || !strings.Contains(last.Text, "2025-09-17 15:30") {
		t.Fatalf("status report = %q, want accepted entry with timestamp", last.Text)
	}
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return at
}

func TestDispatcherDecisionFromNonReviewer(t *testing.T) {
	d, tx, store := newTestDispatcher(t)
	d.dispatch(callback(99, "accept:42", transport.MessageRef{Chat: 99, Message: 1}))
	if last, _ := tx.lastTo(99); last.Text != deniedReply {
		t.Fatalf("reply = %q, want denial", last.Text)
	}
	if _, ok, _ := store.AcceptedAt(42); ok {
		t.Fatal("non-reviewer decision must not touch the accepted set")
	}
}
