// Package attempt implements the lifecycle state machine that owns a single
// timed run through a quiz: it is the only component that touches the answer
// store, the countdown, and the submission layer, and it guarantees the
// submission layer runs at most once per attempt.
package attempt

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"assessment-attempt-service/internal/answers"
	"assessment-attempt-service/internal/backend"
	"assessment-attempt-service/internal/domain"
	"assessment-attempt-service/internal/submit"
	"assessment-attempt-service/internal/timer"
)

const defaultDurationMinutes = 30

// Opener requests attempt identities from the assessment service.
type Opener interface {
	StartAttempt(ctx context.Context, quizID, studentID string) (backend.StartAttemptResponse, error)
}

// Submitter resolves an attempt to a final Result. It never fails.
type Submitter interface {
	Submit(ctx context.Context, quiz domain.Quiz, req submit.Request) domain.Result
}

// Events are the controller's outbound callbacks. OnResult fires exactly
// once per attempt, whichever trigger won; OnTick relays countdown seconds.
// Either may be nil.
type Events struct {
	OnTick   func(remaining int)
	OnResult func(domain.Result)
}

// Controller drives one attempt through
// NotStarted -> InProgress -> Submitting -> Completed/Expired.
type Controller struct {
	quiz      domain.Quiz
	opener    Opener
	submitter Submitter
	clock     timer.Clock
	now       func() time.Time
	events    Events

	mu              sync.Mutex
	attempt         domain.Attempt
	store           *answers.Store
	countdown       *timer.Countdown
	durationSeconds int
	result          *domain.Result
}

// New builds a controller for one (student, quiz) pair. The quiz must
// already be normalized.
func New(quiz domain.Quiz, studentID string, opener Opener, submitter Submitter, clock timer.Clock, events Events) *Controller {
	return &Controller{
		quiz:      quiz,
		opener:    opener,
		submitter: submitter,
		clock:     clock,
		now:       time.Now,
		events:    events,
		attempt: domain.Attempt{
			QuizID:    quiz.ID,
			StudentID: studentID,
			Status:    domain.StatusNotStarted,
		},
		store: answers.NewStore(quiz),
	}
}

// Start opens the attempt: requests an identity from the backend (resuming
// an already-open attempt instead of failing), arms the countdown, and
// moves to InProgress.
func (c *Controller) Start(ctx context.Context) (domain.Attempt, error) {
	c.mu.Lock()
	if c.attempt.Status != domain.StatusNotStarted {
		c.mu.Unlock()
		return domain.Attempt{}, domain.ErrAttemptAlreadyActive
	}
	c.mu.Unlock()

	resp, err := c.opener.StartAttempt(ctx, c.quiz.ID, c.attempt.StudentID)
	switch {
	case err == nil:
		if resp.Resumed {
			log.Printf("attempt: resuming open attempt %s for student %s", resp.AttemptID, c.attempt.StudentID)
		}
	case backend.Transient(err):
		// The backend being down must not block the student; a local
		// identity keeps the session usable and submission will fall back
		// to degraded scoring if the outage persists.
		resp.AttemptID = "local-" + uuid.NewString()
		log.Printf("attempt: backend unreachable, using local id %s: %v", resp.AttemptID, err)
	default:
		c.mu.Lock()
		c.attempt.Status = domain.StatusError
		c.mu.Unlock()
		return domain.Attempt{}, fmt.Errorf("start attempt: %w", err)
	}

	c.mu.Lock()
	if c.attempt.Status != domain.StatusNotStarted {
		c.mu.Unlock()
		return domain.Attempt{}, domain.ErrAttemptAlreadyActive
	}
	c.attempt.ID = resp.AttemptID
	c.attempt.Status = domain.StatusInProgress
	c.attempt.StartTime = c.now()

	minutes := c.quiz.DurationMinutes
	if minutes <= 0 {
		minutes = defaultDurationMinutes
	}
	c.durationSeconds = minutes * 60
	c.countdown = timer.New(c.clock)
	started := c.attempt
	// Armed before the lock drops so a racing Submit can never observe an
	// InProgress attempt without a running countdown.
	if err := c.countdown.Start(c.durationSeconds, c.events.OnTick, c.expire); err != nil {
		c.attempt.Status = domain.StatusError
		c.mu.Unlock()
		return domain.Attempt{}, err
	}
	c.mu.Unlock()
	return started, nil
}

// Select records an option selection while the attempt runs. Selections
// arriving after submission began are rejected rather than mutating a
// frozen attempt.
func (c *Controller) Select(questionID, optionID string) error {
	c.mu.Lock()
	status := c.attempt.Status
	c.mu.Unlock()

	switch status {
	case domain.StatusInProgress:
		c.store.Select(questionID, optionID)
		return nil
	case domain.StatusNotStarted:
		return domain.ErrAttemptNotStarted
	default:
		return domain.ErrAttemptFinished
	}
}

// Progress reports the answered fraction for display.
func (c *Controller) Progress() float64 { return c.store.Progress() }

// Submit is the manual submission trigger.
func (c *Controller) Submit(ctx context.Context) (domain.Result, error) {
	return c.finish(ctx, false)
}

// expire is the countdown's expiry trigger. It runs on the countdown
// goroutine; the submit-once gate resolves any race with a manual submit.
func (c *Controller) expire() {
	if _, err := c.finish(context.Background(), true); err != nil {
		log.Printf("attempt %s: expiry submission rejected: %v", c.attempt.ID, err)
	}
}

// finish is the single gateway into Submitting. The status check and
// transition happen under one lock acquisition, so exactly one trigger wins
// and the submission layer is invoked at most once per attempt.
func (c *Controller) finish(ctx context.Context, expired bool) (domain.Result, error) {
	c.mu.Lock()
	switch c.attempt.Status {
	case domain.StatusInProgress:
	case domain.StatusNotStarted:
		c.mu.Unlock()
		return domain.Result{}, domain.ErrAttemptNotStarted
	default:
		c.mu.Unlock()
		return domain.Result{}, domain.ErrDuplicateSubmit
	}
	c.attempt.Status = domain.StatusSubmitting
	c.attempt.Answers = c.store.Snapshot()
	timeSpent := c.durationSeconds - c.countdown.Remaining()
	req := submit.Request{
		AttemptID:        c.attempt.ID,
		QuizID:           c.attempt.QuizID,
		StudentID:        c.attempt.StudentID,
		Answers:          c.attempt.Answers,
		TimeSpentSeconds: timeSpent,
	}
	countdown := c.countdown
	c.mu.Unlock()

	// The expiry trigger runs inside the countdown's own callback, which has
	// already disarmed it; cancelling from there would wait on itself.
	if !expired {
		countdown.Cancel()
	}

	result := c.submitter.Submit(ctx, c.quiz, req)

	c.mu.Lock()
	if expired {
		c.attempt.Status = domain.StatusExpired
	} else {
		c.attempt.Status = domain.StatusCompleted
	}
	c.result = &result
	c.mu.Unlock()

	if c.events.OnResult != nil {
		c.events.OnResult(result)
	}
	return result, nil
}

// Abandon tears the attempt down without submitting: the countdown stops
// and the attempt is left for server-side reconciliation. A submission
// already in flight is left to finish in the background.
func (c *Controller) Abandon() {
	c.mu.Lock()
	countdown := c.countdown
	abandoned := c.attempt.Status == domain.StatusInProgress
	if abandoned {
		c.attempt.Status = domain.StatusNotStarted
	}
	c.mu.Unlock()

	if abandoned && countdown != nil {
		countdown.Cancel()
	}
}

// DurationSeconds reports the countdown length chosen at start.
func (c *Controller) DurationSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durationSeconds
}

// Status returns the current lifecycle state.
func (c *Controller) Status() domain.AttemptStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt.Status
}

// Live reports whether the attempt still holds the one-live-attempt slot
// for its (student, quiz) pair.
func (c *Controller) Live() bool {
	switch c.Status() {
	case domain.StatusInProgress, domain.StatusSubmitting:
		return true
	}
	return false
}

// Finished reports whether the attempt reached a terminal state. A controller
// that is built but not yet started is neither live nor finished; registries
// treat it as still occupying its slot.
func (c *Controller) Finished() bool {
	switch c.Status() {
	case domain.StatusCompleted, domain.StatusExpired, domain.StatusError:
		return true
	}
	return false
}

// Attempt returns a copy of the attempt's current state.
func (c *Controller) Attempt() domain.Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Result returns the final result once one exists.
func (c *Controller) Result() (domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.Result{}, false
	}
	return *c.result, true
}

// Quiz exposes the normalized quiz the attempt runs against.
func (c *Controller) Quiz() domain.Quiz { return c.quiz }
