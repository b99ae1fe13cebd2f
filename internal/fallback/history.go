package fallback

import (
	"sync"

	"tourist-kgqa/internal/common/logger"
)

// Message is one turn of a user's conversation with the generative fallback.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// historyMaxChars is the default character budget for one user's history,
// counted over message contents.
const historyMaxChars = 11000

// HistoryStore keeps per-user conversation history in memory so follow-up
// questions carry their context to the generative model. Histories are
// trimmed oldest-first to stay under the character budget.
type HistoryStore struct {
	mu       sync.Mutex
	byUser   map[string][]Message
	maxChars int
	log      logger.Logger
}

// NewHistoryStore builds a store with the given character budget; a
// non-positive budget falls back to the default.
func NewHistoryStore(maxChars int, log logger.Logger) *HistoryStore {
	if maxChars <= 0 {
		maxChars = historyMaxChars
	}
	return &HistoryStore{
		byUser:   make(map[string][]Message),
		maxChars: maxChars,
		log:      log,
	}
}

// Append records one message for the user and trims the history to budget.
// Trimming drops oldest-first but never evicts the most recent user message,
// even when keeping it leaves the history over budget; sending an over-long
// context to the model is better than losing the question itself.
func (h *HistoryStore) Append(userID, role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := append(h.byUser[userID], Message{Role: role, Content: content})
	for len(msgs) > 1 && totalChars(msgs) > h.maxChars {
		if msgs[0].Role == "user" && lastUserIndex(msgs) == 0 {
			break
		}
		msgs = msgs[1:]
	}
	if totalChars(msgs) > h.maxChars {
		h.log.Warn("history still over budget after trimming", map[string]interface{}{
			"user_id": userID,
			"chars":   totalChars(msgs),
		})
	}
	h.byUser[userID] = msgs
}

func lastUserIndex(msgs []Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return i
		}
	}
	return -1
}

// Snapshot returns a copy of the user's history in chronological order.
func (h *HistoryStore) Snapshot(userID string) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := h.byUser[userID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

func totalChars(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		n += len([]rune(m.Content))
	}
	return n
}
