package auth

// Status is the terminal state of a credential operation.
type Status string

const (
	// StatusAuthenticated means the operation produced a live session.
	StatusAuthenticated Status = "authenticated"
	// StatusPendingConfirmation means registration succeeded but the account
	// awaits email confirmation; no session was produced.
	StatusPendingConfirmation Status = "pending_confirmation"
	// StatusFailed means the operation failed; Error carries the reason.
	StatusFailed Status = "failed"
	// StatusSignedOut means the local session was cleared.
	StatusSignedOut Status = "signed_out"
)

// Result is the structured outcome UI callers consume. Failures never
// propagate out of the facade as raw errors; they land here.
type Result struct {
	Success bool   `json:"success"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
}

func success(status Status) Result {
	return Result{Success: true, Status: status}
}

func failure(msg string) Result {
	return Result{Success: false, Status: StatusFailed, Error: msg}
}
