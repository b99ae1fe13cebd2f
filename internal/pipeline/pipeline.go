// Package pipeline orchestrates the question-answering stages: entity
// matching, intent classification, query synthesis, and answer formatting,
// with deferral to the generative fallback at every dead end.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "tourist-kgqa/internal/common/errors"
	"tourist-kgqa/internal/common/logger"
	"tourist-kgqa/internal/common/metrics"
	"tourist-kgqa/internal/common/observability"
	"tourist-kgqa/internal/fallback"
	"tourist-kgqa/internal/pipeline/classifier"
	"tourist-kgqa/internal/pipeline/formatter"
	"tourist-kgqa/internal/pipeline/matcher"
	"tourist-kgqa/internal/pipeline/synthesizer"
)

// Deferrer hands a question to the asynchronous fallback. Implemented by the
// fallback dispatcher; tests substitute a recorder.
type Deferrer interface {
	Dispatch(requestID, userID, question string)
}

// Outcome labels for metrics.
const (
	outcomeAnswered = "answered"
	outcomeClarify  = "clarify"
	outcomeDeferred = "deferred"
)

// waitingTexts is the placeholder answer returned while the fallback works,
// keyed by the deferral's error code.
var waitingTexts = map[apperrors.ErrorCode]string{
	apperrors.ErrCodeEntityNotRecognized: "正在思考中，由于未能在本地识别到相关景点，正在联网查询更多资源，请稍等片刻...",
	apperrors.ErrCodeQuerySynthesisEmpty: "正在思考中，由于本地知识库暂不支持该类问题，正在联网查询更多资源，请稍等片刻...",
	apperrors.ErrCodeNoLocalData:         "正在思考中，由于本地知识库中没有相关信息，正在联网查询更多资源，请稍等片刻...",
	apperrors.ErrCodeGraphQueryFailed:    "正在思考中，由于本地知识库暂时不可用，正在联网查询更多资源，请稍等片刻...",
}

// Response is the synchronous answer to one question. Deferred responses
// carry the request id to poll for the real answer.
type Response struct {
	Answer    string `json:"answer"`
	Deferred  bool   `json:"deferred"`
	RequestID string `json:"requestId,omitempty"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	matcher    *matcher.Matcher
	classifier *classifier.Classifier
	synth      *synthesizer.Synthesizer
	formatter  *formatter.Formatter
	deferrer   Deferrer
	history    *fallback.HistoryStore
	obs        *observability.Observability
	log        logger.Logger
}

func New(
	m *matcher.Matcher,
	c *classifier.Classifier,
	s *synthesizer.Synthesizer,
	f *formatter.Formatter,
	deferrer Deferrer,
	history *fallback.HistoryStore,
	obs *observability.Observability,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		matcher:    m,
		classifier: c,
		synth:      s,
		formatter:  f,
		deferrer:   deferrer,
		history:    history,
		obs:        obs,
		log:        log,
	}
}

// Ask answers one question. It never returns an error to the caller: every
// dead end inside the local pipeline turns into a deferred response instead.
func (p *Pipeline) Ask(ctx context.Context, question, userID string) Response {
	start := time.Now()
	outcome := outcomeAnswered
	defer func() {
		metrics.QuestionsTotal.WithLabelValues(outcome).Inc()
		metrics.PipelineDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		p.obs.RecordQuestion(ctx, outcome)
		p.obs.RecordQuestionDuration(ctx, time.Since(start), outcome)
	}()

	entities, order := p.matcher.Match(question)
	metrics.EntitiesMatched.Observe(float64(len(entities)))
	if len(entities) == 0 {
		outcome = outcomeDeferred
		return p.deferQuestion(question, userID, apperrors.ErrCodeEntityNotRecognized)
	}

	result := p.classifier.Classify(question, entities, order)
	if result.Empty() || len(result.Intents) == 0 {
		outcome = outcomeClarify
		p.log.Info("question needs clarification", map[string]interface{}{
			"user_id": userID,
			"code":    string(apperrors.ErrCodeIntentEmpty),
		})
		return Response{Answer: clarifyingPrompt(order)}
	}

	batch := p.synth.Synthesize(result)
	if batch.Empty() {
		outcome = outcomeDeferred
		return p.deferQuestion(question, userID, apperrors.ErrCodeQuerySynthesisEmpty)
	}

	answers, hasData, err := p.formatter.Format(ctx, batch)
	if err != nil {
		outcome = outcomeDeferred
		p.log.Warn("local answering failed, deferring", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return p.deferQuestion(question, userID, apperrors.ErrCodeGraphQueryFailed)
	}
	if !hasData {
		outcome = outcomeDeferred
		return p.deferQuestion(question, userID, apperrors.ErrCodeNoLocalData)
	}

	answer := strings.Join(answers, "\n")
	// Local answers still feed the conversation history so a later deferred
	// follow-up carries its context to the generative model.
	p.history.Append(userID, "user", question)
	p.history.Append(userID, "assistant", answer)

	p.log.Info("question answered locally", map[string]interface{}{
		"user_id":  userID,
		"entities": len(entities),
		"intents":  len(result.Intents),
	})
	return Response{Answer: answer}
}

func (p *Pipeline) deferQuestion(question, userID string, reason apperrors.ErrorCode) Response {
	requestID := uuid.NewString()
	metrics.DeferredTotal.WithLabelValues(string(reason)).Inc()
	p.log.Info("question deferred to fallback", map[string]interface{}{
		"user_id":    userID,
		"request_id": requestID,
		"reason":     string(reason),
	})

	p.deferrer.Dispatch(requestID, userID, question)
	return Response{
		Answer:    waitingTexts[reason],
		Deferred:  true,
		RequestID: requestID,
	}
}

// clarifyingPrompt names the first recognized entity and asks the user to
// narrow the question. Reached when entities exist but no intent could be
// assigned.
func clarifyingPrompt(order []string) string {
	entity := ""
	if len(order) > 0 {
		entity = order[0]
	}
	return "抱歉，我理解您在问关于\"" + entity + "\"的信息，但我不太明白您具体想了解哪个方面。您可以问我关于景点的地址、开放时间、简介等信息。"
}
