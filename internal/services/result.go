// Package services implements the two orchestrators behind every chat
// command: account provisioning (message or /adduser) and account
// query/mutation (/suspend, /resetpw, /userinfo, /listusers).
//
// Services depend on the adapter contracts (directory.Client, notify.Sender,
// audit.Logger) and never on concrete providers, so tests substitute fakes.
// Every user-facing failure message maps to exactly one branch of the error
// taxonomy; raw provider errors go to the operator log only.
package services

// Outcome is the terminal state of one user-facing operation.
type Outcome string

// Terminal outcomes. Partial means some side effects happened and the caller
// was warned (e.g. account created but the credential email failed).
const (
	OutcomeCompleted    Outcome = "completed"
	OutcomePartial      Outcome = "partial"
	OutcomeRejected     Outcome = "rejected"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeFailed       Outcome = "failed"
)

// Result is what an orchestrator hands back to the chat transport: the
// terminal outcome plus the messages to send, in order.
type Result struct {
	Outcome Outcome
	Replies []string
}

func completed(replies ...string) Result {
	return Result{Outcome: OutcomeCompleted, Replies: replies}
}

func partial(replies ...string) Result {
	return Result{Outcome: OutcomePartial, Replies: replies}
}

func rejected(replies ...string) Result {
	return Result{Outcome: OutcomeRejected, Replies: replies}
}

func failed(replies ...string) Result {
	return Result{Outcome: OutcomeFailed, Replies: replies}
}

func unauthorized() Result {
	return Result{Outcome: OutcomeUnauthorized, Replies: []string{ReplyUnauthorized}}
}
