package models

import (
	"strconv"
	"time"
)

// Identity is the opaque chat handle identifying a participant (applicant or
// reviewer) on the transport.
type Identity int64

func (id Identity) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseIdentity parses the stringified form used as a persisted map key.
func ParseIdentity(s string) (Identity, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	return Identity(n), err
}

// Question is one step of the intake questionnaire.
type Question struct {
	Label  string // key the answer is recorded under
	Prompt string // text sent to the applicant
}

// Answer is one answered question.
type Answer struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Submission is a completed, immutable set of questionnaire answers tied to
// one Identity. Answers holds every question label exactly once, in question
// order.
type Submission struct {
	ID        string
	Identity  Identity
	Answers   []Answer
	CreatedAt time.Time
}

// Decision is the terminal outcome of a review.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// DecisionRecord captures who resolved a submission, how, and when. The first
// record for a submission is final; later conflicting decisions are rejected.
type DecisionRecord struct {
	Identity  Identity
	Decision  Decision
	Reviewer  Identity
	DecidedAt time.Time
}
