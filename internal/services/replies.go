package services

import "github.com/opsdesk/workspace-bot/internal/extract"

// User-facing reply texts. Each failure text is distinct enough to identify
// its taxonomy branch without exposing internal error detail.
const (
	// ReplyUnauthorized is the fixed refusal for callers off the allow-list.
	ReplyUnauthorized = "You are not authorised to use this bot."

	// ReplyStart greets an authorized caller with the message format.
	ReplyStart = "Hello! " + extract.MessageUsage

	// ReplyHelp lists the available commands.
	ReplyHelp = "Available commands:\n" +
		"/start - Show the welcome message and the expected format\n" +
		"/adduser <First Name> <Last Name> <Desired Email> <Secondary Email> [Comment] - Create a new account\n" +
		"/suspend <email> - Suspend an account\n" +
		"/resetpw <email> - Reset an account password\n" +
		"/userinfo <email> - Show account details\n" +
		"/listusers - List all accounts\n" +
		"/help - Show this help message"

	replyCreated      = "The account for %s has been created."
	replyNotifyFailed = "Warning: the credentials email to %s could not be sent. The account is active; please deliver the password another way."

	replyDuplicate   = "An account with email %s already exists."
	replyRateLimited = "The directory service is refusing requests right now. Please try again in a few minutes."
	replyTransient   = "There is a temporary problem reaching the directory service. Please try again later."
	replyFatal       = "The request could not be completed. Please contact an administrator."
	replyNotFound    = "No account found for %s."

	replyProtectedSuspend = "The account with email %s cannot be suspended."
	replyProtectedReset   = "The password for %s cannot be reset."
	replyProtectedInfo    = "The account info for email %s cannot be disclosed."

	replySuspended = "The account with email %s has been suspended."

	replySuspendUsage = "Please provide an email address. Usage: /suspend <email>"
	replyResetUsage   = "Please provide an email address. Usage: /resetpw <email>"
	replyInfoUsage    = "Please provide an email address. Usage: /userinfo <email>"

	replyNoUsers = "No users found."

	// replyNoRecovery is the sentinel shown when an account has no recovery
	// email on file. Never rendered as a blank.
	replyNoRecovery = "Not provided"
)
