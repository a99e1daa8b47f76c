// Package bot routes inbound transport events to the conversation and review
// services. Events arrive on a single channel and are handled one at a time,
// which serializes everything per identity; a panic while handling one event
// is logged and the loop keeps serving.
package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/ollkyy/scoutbot/internal/models"
	"github.com/ollkyy/scoutbot/internal/services"
	"github.com/ollkyy/scoutbot/internal/transport"
)

const (
	greeting = "Hi! This is the intake questionnaire for the Agency Scout team.\n\nPress \"Start\" to begin:"

	cancelledReply = "Application cancelled."
	completedReply = "Thank you! Your application has been submitted, we will get back to you."
	deniedReply    = "This command is available to reviewers only."
)

type Dispatcher struct {
	tx        transport.Adapter
	convo     *services.ConversationService
	review    *services.ReviewService
	reviewers map[models.Identity]bool
}

func NewDispatcher(tx transport.Adapter, convo *services.ConversationService, review *services.ReviewService, reviewers []models.Identity) *Dispatcher {
	set := make(map[models.Identity]bool, len(reviewers))
	for _, id := range reviewers {
		set[id] = true
	}
	return &Dispatcher{tx: tx, convo: convo, review: review, reviewers: set}
}

// Run consumes the transport event stream until it closes.
func (d *Dispatcher) Run() {
	for ev := range d.tx.Events() {
		d.dispatch(ev)
	}
}

func (d *Dispatcher) dispatch(ev transport.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bot: panic handling event from %s: %v", ev.From, r)
		}
	}()
	switch ev.Kind {
	case transport.EventCommand:
		log.Printf("bot: [CMD] %s: /%s", ev.From, ev.Command)
		d.handleCommand(ev)
	case transport.EventCallback:
		log.Printf("bot: [CALLBACK] %s: %s", ev.From, ev.Data)
		d.handleCallback(ev)
	case transport.EventText:
		log.Printf("bot: [MSG] %s: %s", ev.From, ev.Text)
		d.handleText(ev)
	}
}

func (d *Dispatcher) handleCommand(ev transport.Event) {
	switch ev.Command {
	case "start":
		buttons := [][]transport.Button{
			{{Label: "✅ Start", Data: "begin"}},
			{{Label: "❌ Cancel", Data: "cancel"}},
		}
		d.send(ev.From, greeting, buttons)
	case "cancel":
		d.convo.Cancel(ev.From)
		d.send(ev.From, cancelledReply, nil)
	case "status":
		if !d.reviewers[ev.From] {
			d.send(ev.From, deniedReply, nil)
			return
		}
		d.send(ev.From, d.statusReport(), nil)
	default:
		log.Printf("bot: unknown command /%s from %s", ev.Command, ev.From)
	}
}

func (d *Dispatcher) handleCallback(ev transport.Event) {
	switch {
	case ev.Data == "begin":
		if err := d.tx.ClearButtons(ev.Ref); err != nil {
			log.Printf("bot: clear buttons: %v", err)
		}
		prompt := d.convo.Begin(ev.From)
		d.send(ev.From, prompt, nil)
	case ev.Data == "cancel":
		if err := d.tx.ClearButtons(ev.Ref); err != nil {
			log.Printf("bot: clear buttons: %v", err)
		}
		d.convo.Cancel(ev.From)
		d.send(ev.From, cancelledReply, nil)
	case strings.HasPrefix(ev.Data, "accept:") || strings.HasPrefix(ev.Data, "decline:"):
		d.handleDecision(ev)
	default:
		log.Printf("bot: unknown callback %q from %s", ev.Data, ev.From)
	}
}

func (d *Dispatcher) handleDecision(ev transport.Event) {
	if !d.reviewers[ev.From] {
		d.send(ev.From, deniedReply, nil)
		return
	}
	kind, rest, _ := strings.Cut(ev.Data, ":")
	target, err := models.ParseIdentity(rest)
	if err != nil {
		log.Printf("bot: bad decision payload %q from %s: %v", ev.Data, ev.From, err)
		return
	}
	decision := models.DecisionAccepted
	if kind == "decline" {
		decision = models.DecisionRejected
	}
	if err := d.review.Decide(ev.From, target, decision, ev.Ref); err != nil {
		// Conflicts already updated the acting reviewer's card.
		log.Printf("bot: decide %s for %s by %s: %v", decision, target, ev.From, err)
	}
}

func (d *Dispatcher) handleText(ev transport.Event) {
	if !d.convo.Active(ev.From) {
		return
	}
	prompt, sub := d.convo.Answer(ev.From, ev.Text)
	if sub == nil {
		d.send(ev.From, prompt, nil)
		return
	}
	d.send(ev.From, completedReply, nil)
	if err := d.review.Submit(sub); err != nil {
		log.Printf("bot: submit application from %s: %v", ev.From, err)
	}
}

func (d *Dispatcher) statusReport() string {
	entries, err := d.review.AcceptedList()
	if err != nil {
		log.Printf("bot: accepted list: %v", err)
		return "Could not read the accepted list."
	}
	if len(entries) == 0 {
		return "No accepted applications yet."
	}
	var b strings.Builder
	b.WriteString("✅ Accepted applications:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- ID %s (accepted %s)\n", e.Identity, e.AcceptedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func (d *Dispatcher) send(to models.Identity, text string, buttons [][]transport.Button) {
	if _, err := d.tx.Send(to, text, buttons); err != nil {
		log.Printf("bot: send to %s: %v", to, err)
	}
}
