// Package submit implements the submission resilience layer: an ordered
// walk over the backend's known contract shapes, with a deterministic local
// score as the last resort. Callers always get a Result, never an error.
package submit

import (
	"context"
	"log"

	"assessment-attempt-service/internal/backend"
	"assessment-attempt-service/internal/domain"
	"assessment-attempt-service/internal/scoring"
)

// Layer tries each contract once, in order, with no backoff; the list exists
// because the backend surface is inconsistent across deployments, not
// because retrying helps with load.
type Layer struct {
	client    *backend.Client
	contracts []Contract
}

// NewLayer builds a layer over the default contract order.
func NewLayer(client *backend.Client) *Layer {
	return NewLayerWithContracts(client, []Contract{
		PrimaryContract{},
		LegacyContract{},
		CompatContract{},
	})
}

// NewLayerWithContracts allows a custom contract order.
func NewLayerWithContracts(client *backend.Client, contracts []Contract) *Layer {
	return &Layer{client: client, contracts: contracts}
}

// Submit resolves the attempt to a final Result. Transient failures advance
// to the next contract; authorization and validation rejections stop the
// probe immediately. When every path is exhausted the quiz is scored
// locally and the result is marked degraded so the client can warn that the
// score may not be officially recorded.
func (l *Layer) Submit(ctx context.Context, quiz domain.Quiz, req Request) domain.Result {
	for _, contract := range l.contracts {
		result, err := contract.Submit(ctx, l.client, req)
		if err == nil {
			log.Printf("submit: attempt %s confirmed via %s contract", req.AttemptID, contract.Name())
			result.AttemptID = req.AttemptID
			result.TimeSpentSeconds = req.TimeSpentSeconds
			return result
		}
		if !backend.Transient(err) {
			log.Printf("submit: attempt %s rejected by %s contract, not retrying: %v", req.AttemptID, contract.Name(), err)
			break
		}
		log.Printf("submit: attempt %s failed %s contract: %v", req.AttemptID, contract.Name(), err)
	}

	result := scoring.Score(quiz, req.Answers)
	result.AttemptID = req.AttemptID
	result.TimeSpentSeconds = req.TimeSpentSeconds
	result.Degraded = true
	log.Printf("submit: attempt %s scored locally (degraded)", req.AttemptID)
	return result
}
