package entity

import "time"

type ChatSession struct {
	Id                     string
	CreatedAt              time.Time
	LastSeenAssistantCount int
}

// ChatSessionOverview is a session row enriched with its latest activity.
type ChatSessionOverview struct {
	Id                   string
	CreatedAt            time.Time
	LastMessageAt        time.Time
	LastMessageText      *string
	UnreadAssistantCount int64
}
