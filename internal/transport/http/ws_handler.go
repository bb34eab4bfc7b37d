package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"assessment-attempt-service/internal/attempt"
	"assessment-attempt-service/internal/domain"
	"assessment-attempt-service/internal/timer"
)

// writeTimeout bounds each outbound frame so a stalled client cannot block
// the writer and back-pressure the countdown callbacks.
const writeTimeout = 10 * time.Second

// QuizRepository loads normalized quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptRegistry guards the one-live-attempt invariant per (student, quiz).
type AttemptRegistry interface {
	Acquire(ctx context.Context, quizID, studentID string, build func() *attempt.Controller) (*attempt.Controller, error)
	Release(ctx context.Context, quizID, studentID string, ctrl *attempt.Controller)
}

// WSHandler runs one attempt session per websocket connection.
type WSHandler struct {
	quizzes   QuizRepository
	registry  AttemptRegistry
	opener    attempt.Opener
	submitter attempt.Submitter
	clock     timer.Clock
	upgrader  websocket.Upgrader
}

func NewWSHandler(quizzes QuizRepository, registry AttemptRegistry, opener attempt.Opener, submitter attempt.Submitter, clock timer.Clock) *WSHandler {
	return &WSHandler{
		quizzes:   quizzes,
		registry:  registry,
		opener:    opener,
		submitter: submitter,
		clock:     clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type startedPayload struct {
	AttemptID       string         `json:"attemptId"`
	DurationSeconds int            `json:"durationSeconds"`
	Title           string         `json:"title"`
	Questions       []questionView `json:"questions"`
}

type questionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    string       `json:"type"`
	Points  int          `json:"points"`
	Options []optionView `json:"options"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type progressPayload struct {
	Progress float64 `json:"progress"`
}

// ServeWS upgrades HTTP requests to websockets and runs the attempt session
// protocol: start, select, submit inbound; started, tick, progress, result,
// error outbound.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	studentID := r.URL.Query().Get("studentId")
	if quizID == "" || studentID == "" {
		http.Error(w, "missing quizId or studentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan any, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	writeFrame := func(msg any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(msg)
	}

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := writeFrame(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				// Flush whatever was queued before the session ended.
				for {
					select {
					case msg := <-send:
						if err := writeFrame(msg); err != nil {
							return
						}
					default:
						return
					}
				}
			}
		}
	}()

	// push delivers from any goroutine, including the countdown's, and
	// degrades to a drop once the session is torn down. The send channel is
	// never closed: a submission finishing in the background after the
	// student left must not panic, its result is simply discarded.
	push := func(msg any) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	quiz, err := h.quizzes.GetQuiz(r.Context(), quizID)
	if err != nil {
		msg := "failed to load quiz"
		if errors.Is(err, domain.ErrNoQuestions) {
			msg = "quiz has no questions"
		} else if errors.Is(err, domain.ErrQuizNotFound) {
			msg = "quiz not found"
		}
		push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: msg}})
		close(closeSignals)
		<-writerDone
		return
	}

	var ctrl *attempt.Controller
	releaseCtx := context.Background()

	events := attempt.Events{
		OnTick: func(remaining int) {
			push(outboundMessage[tickPayload]{Type: "tick", Payload: tickPayload{RemainingSeconds: remaining}})
		},
		OnResult: func(result domain.Result) {
			push(outboundMessage[domain.Result]{Type: "result", Payload: result})
		},
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			if ctrl != nil {
				push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "attempt already started"}})
				continue
			}
			acquired, err := h.registry.Acquire(r.Context(), quizID, studentID, func() *attempt.Controller {
				return attempt.New(quiz, studentID, h.opener, h.submitter, h.clock, events)
			})
			if err != nil {
				push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			started, err := acquired.Start(r.Context())
			if err != nil {
				h.registry.Release(releaseCtx, quizID, studentID, acquired)
				push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			ctrl = acquired
			push(outboundMessage[startedPayload]{Type: "started", Payload: startedView(started, quiz, acquired.DurationSeconds())})

		case "select":
			if ctrl == nil {
				push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "attempt not started"}})
				continue
			}
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}})
				continue
			}
			if err := ctrl.Select(payload.QuestionID, payload.OptionID); err != nil {
				push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			push(outboundMessage[progressPayload]{Type: "progress", Payload: progressPayload{Progress: ctrl.Progress()}})

		case "submit":
			if ctrl == nil {
				push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "attempt not started"}})
				continue
			}
			// The result is delivered through OnResult; a duplicate trigger
			// lost the race with the countdown and needs no reply of its own.
			if _, err := ctrl.Submit(r.Context()); err != nil && !errors.Is(err, domain.ErrDuplicateSubmit) {
				log.Printf("ws submit attempt: %v", err)
			}

		default:
			push(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	// Connection gone. Walking away never submits: the countdown stops and
	// the attempt is left for server-side reconciliation.
	if ctrl != nil {
		ctrl.Abandon()
		h.registry.Release(releaseCtx, quizID, studentID, ctrl)
	}

	close(closeSignals)
	<-writerDone
}

func startedView(att domain.Attempt, quiz domain.Quiz, durationSeconds int) startedPayload {
	view := startedPayload{
		AttemptID:       att.ID,
		DurationSeconds: durationSeconds,
		Title:           quiz.Title,
	}
	for _, q := range quiz.Questions {
		qv := questionView{
			ID:     q.ID,
			Text:   q.Text,
			Type:   string(q.Type),
			Points: q.Points,
		}
		// Correct option sets stay server-side.
		for _, o := range q.Options {
			qv.Options = append(qv.Options, optionView{ID: o.ID, Text: o.Text})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}
