package models

// ViewTokenMeta is stored as JSON under viewtoken:{id} while the token is live.
// Empty strings stand for absent values.
type ViewTokenMeta struct {
	PromptID string `json:"promptId"`
	UserID   string `json:"userId,omitempty"`
	IPHash   string `json:"ipHash,omitempty"`
	UAHash   string `json:"uaHash,omitempty"`
	FPHash   string `json:"fpHash,omitempty"`
	IssuedAt int64  `json:"issuedAt"`
}

func (m ViewTokenMeta) IsAuthenticated() bool {
	return m.UserID != ""
}
