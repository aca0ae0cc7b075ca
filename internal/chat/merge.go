// Package chat keeps chat threads and their messages de-duplicated and
// ordered by recency across repeated fetches and pushed events.
package chat

import (
	"sort"
	"time"

	"github.com/GTDGit/gtd_dashboard/internal/models"
)

// EffectiveTime is the timestamp a thread is ordered by: the last message
// time, else the update time of its first message preview, else its creation time.
func EffectiveTime(c *models.Chat) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	if len(c.Messages) > 0 {
		return c.Messages[0].UpdatedAt
	}
	return c.CreatedAt
}

// MergeThreads combines two thread batches. Each chat ID appears once, holding
// the most recently seen object: incoming beats existing and a later entry in
// a batch beats an earlier one. The result is sorted newest first.
func MergeThreads(existing, incoming []models.Chat) []models.Chat {
	out := make([]models.Chat, 0, len(existing)+len(incoming))
	index := make(map[int]int, len(existing)+len(incoming))

	add := func(c models.Chat) {
		if i, ok := index[c.ID]; ok {
			out[i] = c
			return
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	for _, c := range existing {
		add(c)
	}
	for _, c := range incoming {
		add(c)
	}

	SortThreads(out)
	return out
}

// SortThreads orders threads by descending effective time. Ties keep their
// relative order.
func SortThreads(threads []models.Chat) {
	sort.SliceStable(threads, func(i, j int) bool {
		return EffectiveTime(&threads[i]).After(EffectiveTime(&threads[j]))
	})
}

// MergeMessages combines message batches by ID, later objects winning, and
// orders them oldest first.
func MergeMessages(existing, incoming []models.Message) []models.Message {
	out := make([]models.Message, 0, len(existing)+len(incoming))
	index := make(map[int]int, len(existing)+len(incoming))
	for _, batch := range [][]models.Message{existing, incoming} {
		for _, m := range batch {
			if i, ok := index[m.ID]; ok {
				out[i] = m
				continue
			}
			index[m.ID] = len(out)
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// AppendMessage adds msg to list unless a message with the same ID is already
// present. It reports whether the list changed.
func AppendMessage(list []models.Message, msg models.Message) ([]models.Message, bool) {
	for _, m := range list {
		if m.ID == msg.ID {
			return list, false
		}
	}
	return append(list, msg), true
}

// Touch bumps the thread's last message time to msg unless msg is older and
// makes msg the thread's preview. On equal times the latest seen wins.
func Touch(c *models.Chat, msg models.Message) {
	if c.LastMessageAt == nil || !msg.CreatedAt.Before(*c.LastMessageAt) {
		t := msg.CreatedAt
		c.LastMessageAt = &t
		c.Messages = []models.Message{msg}
	}
}
