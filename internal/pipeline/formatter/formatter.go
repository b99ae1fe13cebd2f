// Package formatter executes synthesized query batches against the graph and
// renders the rows into Chinese answer sentences.
package formatter

import (
	"context"
	"fmt"
	"strings"

	apperrors "tourist-kgqa/internal/common/errors"
	"tourist-kgqa/internal/common/logger"
	"tourist-kgqa/internal/pipeline/classifier"
	"tourist-kgqa/internal/pipeline/synthesizer"
)

// Executor runs one read query and returns its rows as column-name maps.
// Satisfied by the Neo4j client; tests substitute a fake.
type Executor interface {
	Execute(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Formatter turns query batches into answer sentences.
type Formatter struct {
	executor Executor
	log      logger.Logger
}

func New(executor Executor, log logger.Logger) *Formatter {
	return &Formatter{executor: executor, log: log}
}

// Format runs every query in the batch in order and renders one sentence per
// row, with group-level apology sentences for intents that produced no rows
// at all. The bool reports whether any row came back from the graph; when it
// is false the caller discards the apologies and defers to the fallback.
// Execution errors propagate; no per-query retries.
func (f *Formatter) Format(ctx context.Context, batch synthesizer.Batch) ([]string, bool, error) {
	var answers []string
	total := 0
	for _, group := range batch {
		sentences, rows, err := f.formatGroup(ctx, group)
		if err != nil {
			return nil, false, err
		}
		total += rows
		answers = append(answers, sentences...)
	}
	return answers, total > 0, nil
}

func (f *Formatter) formatGroup(ctx context.Context, group synthesizer.IntentQueries) ([]string, int, error) {
	var sentences []string
	rows := 0
	for _, q := range group.Queries {
		records, err := f.executor.Execute(ctx, q.Cypher, q.Params)
		if err != nil {
			f.log.Error("graph query failed", map[string]interface{}{
				"entity": q.Entity,
				"intent": string(group.Intent),
				"error":  err.Error(),
			})
			return nil, 0, apperrors.NewGraphQueryFailedError(string(group.Intent), err)
		}
		rows += len(records)
		for _, record := range records {
			sentences = append(sentences, renderRow(record, group.Intent, q.Alias))
		}
	}

	if rows == 0 {
		sentences = append(sentences, noDataSentence(group))
	}
	return sentences, rows, nil
}

// renderRow produces the sentence for one graph row. A null, missing, or
// blank attribute value still names the entity in an apology so the user
// knows the attraction itself was found.
func renderRow(record map[string]any, intent classifier.IntentLabel, alias string) string {
	name := stringValue(record["name"])
	if name == "" {
		name = "该景点"
	}
	value := stringValue(record[alias])
	if value == "" {
		return fmt.Sprintf("抱歉，未能查询到%s的%s信息。", name, intent)
	}
	if intent == classifier.IntentDescription {
		return fmt.Sprintf("%s的简介：%s", name, value)
	}
	return fmt.Sprintf("%s的%s是：%s。", name, intent, value)
}

// noDataSentence covers an intent group whose queries all matched zero nodes.
// The entity is named only when the group has exactly one; a multi-entity
// group gets the generic form.
func noDataSentence(group synthesizer.IntentQueries) string {
	if len(group.Queries) == 1 {
		return fmt.Sprintf("抱歉，没有找到%s的%s相关信息。", group.Queries[0].Entity, group.Intent)
	}
	return fmt.Sprintf("抱歉，没有找到相关景点的%s信息。", group.Intent)
}

// stringValue normalizes a graph value for rendering. Neo4j returns nil for
// null properties; numbers come back as int64 or float64.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", val), "0"), ".")
	case int64:
		return fmt.Sprintf("%d", val)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
