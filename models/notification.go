package models

type DispatchStatus string

const (
	DispatchSuccess        DispatchStatus = "success"
	DispatchPartialSuccess DispatchStatus = "partial_success"
	DispatchFailure        DispatchStatus = "failure"
	DispatchNoTarget       DispatchStatus = "no_target"
)

type DispatchResult struct {
	Status         DispatchStatus `json:"status"`
	SuccessCount   int            `json:"successCount"`
	FailureCount   int            `json:"failureCount"`
	TokensTargeted int            `json:"tokensTargeted"`
	TokensRemoved  int            `json:"tokensRemoved"`
}

type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type PushRequest struct {
	Token        string            `json:"token"`
	Title        string            `json:"title" binding:"required"`
	Body         string            `json:"body" binding:"required"`
	Data         map[string]string `json:"data"`
	HighPriority bool              `json:"highPriority"`
}
