package core

import (
	"errors"
	"fmt"
)

// Session errors
var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailTaken             = errors.New("email already registered")
	ErrUsernameTaken          = errors.New("username already taken")
	ErrWalletConnectionFailed = errors.New("wallet connection failed")
	ErrNotAuthenticated       = errors.New("not authenticated")
	ErrInvalidAddress         = errors.New("invalid ethereum address")
	ErrInvalidIdentity        = errors.New("identity requires an email or a wallet address")
	ErrWalletInUse            = errors.New("wallet is linked to another account")

	ErrUsernameRequired = fmt.Errorf("username is required: %w", ErrInvalidIdentity)
)

// Token errors
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrInvalidToken = errors.New("invalid token")
)

// Notification errors
var (
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrDuplicateNotification = errors.New("notification id already exists")
)

// Challenge errors
var (
	ErrNetworkFailure     = errors.New("network failure")
	ErrEmptyAnswer        = errors.New("answer is empty")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrNoChallenge        = errors.New("no challenge loaded")
	ErrChallengeExhausted = errors.New("no attempts remaining")
	ErrStaleResponse      = errors.New("response superseded by a newer request")
	ErrSessionClosed      = errors.New("challenge session closed")
)

// Score errors
var (
	ErrInvalidReward = errors.New("reward amount must be positive")
)

// Storage errors
var (
	ErrNotFound             = errors.New("not found")
	ErrStoreOperationFailed = errors.New("store operation failed")
)

var userMessages = []struct {
	err error
	msg string
}{
	{ErrInvalidCredentials, "Invalid email or password."},
	{ErrEmailTaken, "An account with this email already exists."},
	{ErrUsernameTaken, "This username is already taken."},
	{ErrWalletConnectionFailed, "Could not connect your wallet. Please try again."},
	{ErrNotAuthenticated, "Please sign in to continue."},
	{ErrInvalidAddress, "The connected wallet address is not valid."},
	{ErrWalletInUse, "This wallet is already linked to another account."},
	{ErrUsernameRequired, "Please choose a username."},
	{ErrInvalidIdentity, "Please provide an email address."},
	{ErrNetworkFailure, "Something went wrong reaching the quest server. Please retry."},
	{ErrEmptyAnswer, "Please enter an answer."},
	{ErrSubmissionInFlight, "Your answer is still being checked."},
	{ErrChallengeExhausted, "No attempts left. A new challenge is on its way."},
	{ErrNoChallenge, "Load a challenge first."},
}

// UserMessage returns the inline message shown next to the action that
// produced err. Unknown errors get a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong. Please try again."
}
