package models

// Reason codes recorded on PromptViewEvent and returned to clients.
const (
	ReasonInvalidSignature = "INVALID_SIGNATURE"
	ReasonNotFound         = "NOT_FOUND"
	ReasonCorrupt          = "CORRUPT"
	ReasonPromptMismatch   = "PROMPT_MISMATCH"
	ReasonPromptNotFound   = "PROMPT_NOT_FOUND"
	ReasonSelfView         = "SELF_VIEW"
	ReasonDuplicate        = "DUPLICATE"

	ReasonRLAuth        = "RL_AUTH"
	ReasonRLAuthGlobal  = "RL_AUTH_GLOBAL"
	ReasonRLGuestFP     = "RL_GUEST_FP"
	ReasonRLGuestIPUA   = "RL_GUEST_IPUA"
	ReasonRLGuestIP     = "RL_GUEST_IP"
	ReasonRLGuestGlobal = "RL_GUEST_GLOBAL"

	ReasonRLIssueAuth  = "RL_ISSUE_AUTH"
	ReasonRLIssueGuest = "RL_ISSUE_GUEST"
)

func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
