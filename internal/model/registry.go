package model

// All lists every table owned by the chat engine, in migration order.
func All() []interface{} {
	return []interface{}{
		&ChatSession{},
		&ChatMessage{},
		&ChatChipIntent{},
		&ChatChipPattern{},
		&LiveChatSession{},
	}
}
