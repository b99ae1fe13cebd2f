// Package synthesizer turns a classification result into parameterized
// Cypher queries via a static intent->template table.
package synthesizer

import (
	"fmt"

	"tourist-kgqa/internal/pipeline/classifier"
)

// Query is one parameterized Cypher statement bound to a single entity.
// The entity travels in Params; attribute and alias are literals taken only
// from the static template table.
type Query struct {
	Cypher string
	Params map[string]any
	Entity string
	Alias  string
}

// IntentQueries groups the per-entity queries for one intent.
type IntentQueries struct {
	Intent  classifier.IntentLabel
	Queries []Query
}

// Batch is the ordered result of synthesis: intents in classification order,
// entities in question-occurrence order within each intent.
type Batch []IntentQueries

// Empty reports whether no queries were synthesized.
func (b Batch) Empty() bool {
	return len(b) == 0
}

// template describes how one intent maps onto the graph schema.
type template struct {
	attribute string // property on the 景点 node
	alias     string // result column name, also the formatter's lookup key
}

// templates is resolved once; intents not present here are a data-driven
// no-op, not an error.
var templates = map[classifier.IntentLabel]template{
	classifier.IntentAddress:      {attribute: "address", alias: "地址"},
	classifier.IntentOpeningHours: {attribute: "openingTime", alias: "开放时间"},
	classifier.IntentPhone:        {attribute: "phone", alias: "电话"},
	classifier.IntentRating:       {attribute: "rating", alias: "评分"},
	classifier.IntentPopularity:   {attribute: "popularity", alias: "热度"},
	classifier.IntentWebsite:      {attribute: "website", alias: "官网"},
	classifier.IntentTicketPrice:  {attribute: "discountPolicy", alias: "门票价格"},
	classifier.IntentDescription:  {attribute: "introduction", alias: "简介"},
}

// Synthesizer is stateless; the template table is package data.
type Synthesizer struct{}

func New() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize emits one query per (intent, attraction entity). Intents with
// no template are skipped silently. Entities keep the order they occurred in
// the question, so the answer reads back in the order the user asked.
func (s *Synthesizer) Synthesize(res classifier.Result) Batch {
	entities := res.AttractionEntities()
	if len(entities) == 0 {
		return nil
	}

	var batch Batch
	for _, intent := range res.Intents {
		tmpl, ok := templates[intent]
		if !ok {
			continue
		}
		queries := make([]Query, 0, len(entities))
		for _, entity := range entities {
			queries = append(queries, Query{
				Cypher: fmt.Sprintf(
					"MATCH (a:景点) WHERE a.name = $name RETURN a.name AS name, a.%s AS %s",
					tmpl.attribute, tmpl.alias,
				),
				Params: map[string]any{"name": entity},
				Entity: entity,
				Alias:  tmpl.alias,
			})
		}
		batch = append(batch, IntentQueries{Intent: intent, Queries: queries})
	}
	return batch
}
