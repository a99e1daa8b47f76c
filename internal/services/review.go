package services

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ollkyy/scoutbot/internal/models"
	"github.com/ollkyy/scoutbot/internal/transport"
)

// DecisionStore abstracts the durable persistence required by ReviewService.
type DecisionStore interface {
	MarkSubmitted(id models.Identity, at time.Time) error
	AcceptedAt(id models.Identity) (time.Time, bool, error)
	MarkAccepted(id models.Identity, at time.Time) error
	ListAccepted() (map[models.Identity]time.Time, error)
}

// ReviewTransport is the slice of the chat transport the coordinator drives.
// Every call is best-effort; failures are logged and skipped.
type ReviewTransport interface {
	Send(chat models.Identity, text string, buttons [][]transport.Button) (transport.MessageRef, error)
	EditText(ref transport.MessageRef, text string) error
	ClearButtons(ref transport.MessageRef) error
}

// ReviewBroadcast is one outstanding reviewer notification for a submission.
type ReviewBroadcast struct {
	Reviewer models.Identity
	Ref      transport.MessageRef
}

// pendingReview tracks one submission from broadcast to resolution. broadcasts
// is cleared at resolution; decision stays so later conflicting actions are
// detected for the rest of the process lifetime.
type pendingReview struct {
	sub        *models.Submission
	broadcasts []ReviewBroadcast
	decision   *models.DecisionRecord
}

// ReviewService broadcasts completed submissions to every reviewer and
// enforces the single-decision rule: the first decision to arrive for a
// submission is final, later ones of either kind are rejected with an
// explicit conflict. All state mutations run under one mutex so concurrent
// decisions linearize.
type ReviewService struct {
	mu        sync.Mutex
	store     DecisionStore
	tx        ReviewTransport
	reviewers []models.Identity
	pending   map[models.Identity]*pendingReview
	now       func() time.Time
}

func NewReviewService(store DecisionStore, tx ReviewTransport, reviewers []models.Identity) *ReviewService {
	return &ReviewService{
		store:     store,
		tx:        tx,
		reviewers: reviewers,
		pending:   map[models.Identity]*pendingReview{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit records the submission and broadcasts its review card to every
// configured reviewer. Delivery to each reviewer is independent: a failed
// send is logged and skipped, the rest still receive their copy.
func (s *ReviewService) Submit(sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.MarkSubmitted(sub.Identity, sub.CreatedAt); err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	card := renderCard(sub)
	buttons := [][]transport.Button{{
		{Label: "✅ Accept", Data: "accept:" + sub.Identity.String()},
		{Label: "❌ Decline", Data: "decline:" + sub.Identity.String()},
	}}
	p := &pendingReview{sub: sub}
	for _, rv := range s.reviewers {
		ref, err := s.tx.Send(rv, card, buttons)
		if err != nil {
			log.Printf("review: broadcast to reviewer %s failed: %v", rv, err)
			continue
		}
		p.broadcasts = append(p.broadcasts, ReviewBroadcast{Reviewer: rv, Ref: ref})
	}
	s.pending[sub.Identity] = p
	log.Printf("review: application %s from %s sent to %d reviewer(s)", sub.ID, sub.Identity, len(p.broadcasts))
	return nil
}

// Decide resolves the active submission for target. ref is the acting
// reviewer's own copy of the review card, edited in place to show the
// outcome. Any prior decision, whether in-memory for this submission or
// persisted in the accepted set, is terminal: Decide then updates the acting
// reviewer's view and returns a conflict error without touching other state.
func (s *ReviewService) Decide(reviewer, target models.Identity, decision models.Decision, ref transport.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pending[target]
	if p != nil && p.decision != nil {
		s.notifyConflict(reviewer, ref, p, p.decision)
		return NewConflictError(fmt.Sprintf("application from %s already %s by reviewer %s", target, p.decision.Decision, p.decision.Reviewer))
	}
	// The accepted set outlives the process: an identity may be accepted at
	// most once, ever, even if the submission that won is long resolved.
	if decision == models.DecisionAccepted {
		if _, ok, err := s.store.AcceptedAt(target); err != nil {
			return fmt.Errorf("check accepted set: %w", err)
		} else if ok {
			s.notifyConflict(reviewer, ref, p, nil)
			return NewConflictError(fmt.Sprintf("application from %s was already accepted earlier", target))
		}
	}
	if p == nil {
		return NewNotFoundError(fmt.Sprintf("no active application from %s", target))
	}

	rec := &models.DecisionRecord{Identity: target, Decision: decision, Reviewer: reviewer, DecidedAt: s.now()}
	p.decision = rec
	if decision == models.DecisionAccepted {
		if err := s.store.MarkAccepted(target, rec.DecidedAt); err != nil {
			return fmt.Errorf("record acceptance: %w", err)
		}
	}

	outcome := outcomeLine(rec)

	// Acting reviewer's card: drop the buttons, append the outcome.
	if err := s.tx.ClearButtons(ref); err != nil {
		log.Printf("review: clear buttons for reviewer %s: %v", reviewer, err)
	}
	if err := s.tx.EditText(ref, renderCard(p.sub)+"\n\n"+outcome); err != nil {
		log.Printf("review: edit card for reviewer %s: %v", reviewer, err)
	}

	// Everyone else's copy converges: buttons revoked, outcome announced.
	for _, bc := range p.broadcasts {
		if bc.Ref == ref {
			continue
		}
		if err := s.tx.ClearButtons(bc.Ref); err != nil {
			log.Printf("review: clear buttons for reviewer %s: %v", bc.Reviewer, err)
		}
		if _, err := s.tx.Send(bc.Reviewer, outcome, nil); err != nil {
			log.Printf("review: notify reviewer %s: %v", bc.Reviewer, err)
		}
	}

	// The applicant hears the outcome directly.
	if _, err := s.tx.Send(target, applicantNotice(decision), nil); err != nil {
		log.Printf("review: notify applicant %s: %v", target, err)
	}

	p.broadcasts = nil
	log.Printf("review: application from %s %s by reviewer %s", target, decision, reviewer)
	return nil
}

// AcceptedEntry is one row of the read-only status listing.
type AcceptedEntry struct {
	Identity   models.Identity
	AcceptedAt time.Time
}

// AcceptedList returns the accepted set ordered by acceptance time.
func (s *ReviewService) AcceptedList() ([]AcceptedEntry, error) {
	accepted, err := s.store.ListAccepted()
	if err != nil {
		return nil, err
	}
	out := make([]AcceptedEntry, 0, len(accepted))
	for id, at := range accepted {
		out = append(out, AcceptedEntry{Identity: id, AcceptedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AcceptedAt.Before(out[j].AcceptedAt) })
	return out, nil
}

// notifyConflict tells the acting reviewer the submission is already decided.
// When the card is still known its text is rewritten in place; otherwise (a
// decision persisted before this process started) a fresh notice is sent.
func (s *ReviewService) notifyConflict(reviewer models.Identity, ref transport.MessageRef, p *pendingReview, prior *models.DecisionRecord) {
	notice := "⚠️ This application was already accepted earlier."
	if prior != nil {
		notice = fmt.Sprintf("⚠️ Already decided: %s by reviewer %s.", prior.Decision, prior.Reviewer)
	}
	if err := s.tx.ClearButtons(ref); err != nil {
		log.Printf("review: clear buttons for reviewer %s: %v", reviewer, err)
	}
	if p != nil {
		if err := s.tx.EditText(ref, renderCard(p.sub)+"\n\n"+notice); err != nil {
			log.Printf("review: edit card for reviewer %s: %v", reviewer, err)
		}
		return
	}
	if _, err := s.tx.Send(reviewer, notice, nil); err != nil {
		log.Printf("review: notify reviewer %s: %v", reviewer, err)
	}
}

func renderCard(sub *models.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📩 New application from ID %s:\n", sub.Identity)
	for _, a := range sub.Answers {
		fmt.Fprintf(&b, "\n%s: %s", a.Label, a.Text)
	}
	return b.String()
}

func outcomeLine(rec *models.DecisionRecord) string {
	if rec.Decision == models.DecisionAccepted {
		return fmt.Sprintf("✅ Application from ID %s accepted by reviewer %s", rec.Identity, rec.Reviewer)
	}
	return fmt.Sprintf("❌ Application from ID %s declined by reviewer %s", rec.Identity, rec.Reviewer)
}

func applicantNotice(d models.Decision) string {
	if d == models.DecisionAccepted {
		return "Your application has been accepted! We will be in touch shortly."
	}
	return "Unfortunately, your application has been declined."
}
