package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// StartAttemptResponse is the outcome of opening an attempt upstream.
// Resumed is set when the service reported an already-open attempt and we
// recovered its identity instead of failing.
type StartAttemptResponse struct {
	AttemptID string
	Resumed   bool
}

// StartAttempt opens an attempt for a student. A conflict response is a
// resumable condition, not an error: the existing attempt ID is extracted
// from the rejection payload when present.
func (c *Client) StartAttempt(ctx context.Context, quizID, studentID string) (StartAttemptResponse, error) {
	payload, err := c.PostJSON(ctx, "/api/v1/quizzes/"+quizID+"/attempts", map[string]any{
		"studentId": studentID,
	})
	if err == nil {
		if id := attemptIDFrom(payload); id != "" {
			return StartAttemptResponse{AttemptID: id}, nil
		}
		return StartAttemptResponse{}, fmt.Errorf("start attempt: response carried no attempt id")
	}

	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusConflict {
		if id := existingAttemptID(se.Body); id != "" {
			return StartAttemptResponse{AttemptID: id, Resumed: true}, nil
		}
	}
	return StartAttemptResponse{}, fmt.Errorf("start attempt: %w", err)
}

// FetchQuiz retrieves the raw quiz payload for normalization. The shape is
// deployment-dependent, so it is returned undecoded beyond the top level.
func (c *Client) FetchQuiz(ctx context.Context, quizID string) (map[string]any, error) {
	payload, err := c.GetJSON(ctx, "/api/v1/quizzes/"+quizID)
	if err != nil {
		return nil, fmt.Errorf("fetch quiz %s: %w", quizID, err)
	}
	return payload, nil
}

func attemptIDFrom(payload map[string]any) string {
	for _, key := range []string{"attemptId", "id", "_id"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	for _, key := range []string{"attempt", "data", "result"} {
		if inner, ok := payload[key].(map[string]any); ok {
			if id := attemptIDFrom(inner); id != "" {
				return id
			}
		}
	}
	return ""
}

// existingAttemptID digs the open attempt's identity out of a conflict body.
func existingAttemptID(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if id := attemptIDFrom(payload); id != "" {
		return id
	}
	for _, key := range []string{"error", "detail", "conflict"} {
		if inner, ok := payload[key].(map[string]any); ok {
			if id := attemptIDFrom(inner); id != "" {
				return id
			}
		}
	}
	return ""
}
