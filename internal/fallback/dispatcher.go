// Package fallback defers questions the local pipeline could not answer to
// the Spark generative API and stores the outcome for later pickup.
package fallback

import (
	"context"
	"time"

	stderrors "errors"

	apperrors "tourist-kgqa/internal/common/errors"
	"tourist-kgqa/internal/common/logger"
	"tourist-kgqa/internal/common/metrics"
)

// Dispatcher runs deferred questions asynchronously: the HTTP handler returns
// a placeholder immediately while a goroutine talks to the generative API and
// lands the terminal result in the store.
type Dispatcher struct {
	generator Generator
	history   *HistoryStore
	results   ResultStore
	log       logger.Logger
}

func NewDispatcher(generator Generator, history *HistoryStore, results ResultStore, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		generator: generator,
		history:   history,
		results:   results,
		log:       log,
	}
}

// Dispatch records the question in the user's history and starts the
// generation in the background. It never blocks on the API call.
func (d *Dispatcher) Dispatch(requestID, userID, question string) {
	d.history.Append(userID, "user", question)
	snapshot := d.history.Snapshot(userID)

	go d.run(requestID, userID, snapshot)
}

func (d *Dispatcher) run(requestID, userID string, history []Message) {
	ctx := context.Background()

	answer, err := d.generateWithRetry(ctx, userID, history)
	if err != nil {
		d.log.Error("fallback generation failed", map[string]interface{}{
			"request_id": requestID,
			"user_id":    userID,
			"error":      err.Error(),
		})
		metrics.FallbackResults.WithLabelValues(StatusError).Inc()
		d.store(ctx, requestID, Result{
			Status:    StatusError,
			Answer:    err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	d.history.Append(userID, "assistant", answer)
	metrics.FallbackResults.WithLabelValues(StatusCompleted).Inc()
	d.store(ctx, requestID, Result{
		Status:    StatusCompleted,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
	})
	d.log.Info("fallback answer stored", map[string]interface{}{
		"request_id": requestID,
		"user_id":    userID,
		"chars":      len([]rune(answer)),
	})
}

// generateWithRetry retries per the error code's recommended count with a
// short linear backoff.
func (d *Dispatcher) generateWithRetry(ctx context.Context, userID string, history []Message) (string, error) {
	answer, err := d.generator.Generate(ctx, userID, history)
	if err == nil {
		return answer, nil
	}

	retries := 0
	var stdErr *apperrors.StandardError
	if stderrors.As(err, &stdErr) && apperrors.IsRetryableErrorCode(stdErr.Code) {
		retries = apperrors.GetRetryCount(stdErr.Code)
	}

	for attempt := 1; attempt <= retries; attempt++ {
		d.log.Warn("retrying fallback generation", map[string]interface{}{
			"user_id": userID,
			"attempt": attempt,
			"error":   err.Error(),
		})
		time.Sleep(time.Duration(attempt) * time.Second)

		answer, err = d.generator.Generate(ctx, userID, history)
		if err == nil {
			return answer, nil
		}
	}
	return "", err
}

func (d *Dispatcher) store(ctx context.Context, requestID string, result Result) {
	if err := d.results.Set(ctx, requestID, result); err != nil {
		d.log.Error("failed to store fallback result", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}
