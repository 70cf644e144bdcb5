package models

// Entities lists every table owned by viewguard, in migration order.
func Entities() []interface{} {
	return []interface{}{
		&Category{},
		&Prompt{},
		&PromptViewEvent{},
		&AntifraudAlert{},
	}
}
