package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ollkyy/scoutbot/internal/models"
)

// DefaultQuestions is the fixed three-step intake questionnaire.
var DefaultQuestions = []models.Question{
	{Label: "Age", Prompt: "How old are you?"},
	{Label: "Time per day", Prompt: "How much time can you commit per day?"},
	{Label: "Experience", Prompt: "Do you have any experience in this field?"},
}

// conversation is the in-progress answer set for one identity. index is the
// question currently awaited; answers holds one entry per answered question.
type conversation struct {
	index   int
	answers []models.Answer
}

// ConversationService drives the per-identity questionnaire flow. An identity
// with no entry in convos is idle; otherwise it is awaiting the question at
// conversation.index. Completed and cancelled conversations collapse back to
// idle so a new questionnaire can begin later.
type ConversationService struct {
	mu        sync.Mutex
	convos    map[models.Identity]*conversation
	questions []models.Question
	now       func() time.Time
	idGen     func() string
}

func NewConversationService() *ConversationService {
	return &ConversationService{
		convos:    map[models.Identity]*conversation{},
		questions: DefaultQuestions,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     uuid.NewString,
	}
}

// Begin starts (or restarts) the questionnaire for id and returns the first
// prompt. Any previously unfinished answers for id are discarded; the reset
// is lossy by contract, not an error.
func (s *ConversationService) Begin(id models.Identity) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convos[id] = &conversation{answers: make([]models.Answer, 0, len(s.questions))}
	return s.questions[0].Prompt
}

// Answer records text under the currently awaited question's label and
// advances. The text is accepted as-is; free-form intake means no validation.
// It returns the next prompt, or the finished Submission when this was the
// last question, in which case the identity resets to idle. Outside an
// active conversation Answer is a no-op returning ("", nil).
func (s *ConversationService) Answer(id models.Identity, text string) (string, *models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.convos[id]
	if c == nil {
		return "", nil
	}
	c.answers = append(c.answers, models.Answer{Label: s.questions[c.index].Label, Text: text})
	c.index++
	if c.index < len(s.questions) {
		return s.questions[c.index].Prompt, nil
	}
	delete(s.convos, id)
	return "", &models.Submission{
		ID:        s.idGen(),
		Identity:  id,
		Answers:   c.answers,
		CreatedAt: s.now(),
	}
}

// Cancel discards any in-progress answers for id and reports whether a
// conversation was active.
func (s *ConversationService) Cancel(id models.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.convos[id]
	delete(s.convos, id)
	return ok
}

// Active reports whether free text from id should be routed to the machine.
func (s *ConversationService) Active(id models.Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convos[id] != nil
}
