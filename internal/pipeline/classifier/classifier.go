// Package classifier assigns intent labels to a question by keyword-set
// membership over the raw question text. The label set is closed; labels
// double as the graph's result-column aliases.
package classifier

import (
	"strings"

	"tourist-kgqa/internal/pipeline/matcher"
)

// IntentLabel is one of the closed set of question intents.
type IntentLabel string

const (
	IntentAddress      IntentLabel = "地址"
	IntentOpeningHours IntentLabel = "开放时间"
	IntentPhone        IntentLabel = "电话"
	IntentRating       IntentLabel = "评分"
	IntentPopularity   IntentLabel = "热度"
	IntentWebsite      IntentLabel = "官网"
	IntentTicketPrice  IntentLabel = "门票价格"
	IntentDescription  IntentLabel = "简介"
)

// Result pairs the recognized entities with the classified intents. Order
// lists the canonical names by first occurrence in the question, the order
// answers should come out in.
// Invariant: Intents is empty whenever Entities is empty; no intent is ever
// inferred without a recognized subject.
type Result struct {
	Entities map[string][]matcher.EntityKind
	Order    []string
	Intents  []IntentLabel
}

// Empty reports whether nothing was classified.
func (r Result) Empty() bool {
	return len(r.Entities) == 0
}

// AttractionEntities returns the canonical names carrying the attraction
// kind, in question-occurrence order.
func (r Result) AttractionEntities() []string {
	var out []string
	for _, name := range r.Order {
		for _, k := range r.Entities[name] {
			if k == matcher.KindAttraction {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// intentKeywords is the fixed ordered table of (label, keyword-set) pairs.
// Order determines the order intents are appended for multi-intent questions.
var intentKeywords = []struct {
	label    IntentLabel
	keywords []string
}{
	{IntentAddress, []string{"地址", "位置", "在哪", "坐落", "方位", "哪里", "在哪儿"}},
	{IntentOpeningHours, []string{"开放时间", "几点开门", "几点关门", "营业时间", "开放到几点", "什么时候开", "什么时候关", "几点开", "几点关"}},
	{IntentPhone, []string{"电话", "联系方式", "号码", "订票电话", "咨询电话"}},
	{IntentRating, []string{"评分", "评价", "怎么样", "好不好", "口碑", "值得去吗", "好玩吗", "推荐吗"}},
	{IntentPopularity, []string{"热度", "人气", "人多吗", "火不火", "热门程度", "人多不多"}},
	{IntentWebsite, []string{"官网", "网站", "网址", "官方网站", "链接"}},
	{IntentTicketPrice, []string{"门票", "票价", "多少钱", "价格", "入场费", "费用"}},
}

// descriptionKeywords backs the first default rule: descriptive phrasing
// with no specific intent.
var descriptionKeywords = []string{"介绍", "简介", "信息", "详情", "描述一下", "讲讲关于", "是什么", "有哪些特色", "概况", "具体情况", "说一下"}

// Classifier is stateless; it exists as a type so the orchestrator can hold
// it alongside the other pipeline stages.
type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

// Classify determines the question's intents given the recognized entities
// and their question-occurrence order. Without entities, or without any
// attraction among them, the result is empty: the classifier is
// domain-restricted to attraction questions.
func (c *Classifier) Classify(question string, entities map[string][]matcher.EntityKind, order []string) Result {
	if len(entities) == 0 {
		return Result{}
	}

	hasAttraction := false
	for _, kinds := range entities {
		for _, k := range kinds {
			if k == matcher.KindAttraction {
				hasAttraction = true
			}
		}
	}
	if !hasAttraction {
		return Result{}
	}

	var intents []IntentLabel
	for _, entry := range intentKeywords {
		if containsAny(question, entry.keywords) {
			intents = append(intents, entry.label)
		}
	}

	// Default rules: descriptive phrasing falls back to 简介, and a bare
	// attraction name is treated as an implicit request for its description.
	if len(intents) == 0 && containsAny(question, descriptionKeywords) {
		intents = append(intents, IntentDescription)
	}
	if len(intents) == 0 {
		intents = append(intents, IntentDescription)
	}

	return Result{
		Entities: entities,
		Order:    order,
		Intents:  dedupe(intents),
	}
}

func containsAny(sentence string, words []string) bool {
	for _, w := range words {
		if strings.Contains(sentence, w) {
			return true
		}
	}
	return false
}

func dedupe(intents []IntentLabel) []IntentLabel {
	seen := make(map[IntentLabel]struct{}, len(intents))
	out := intents[:0]
	for _, it := range intents {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
