package core

import "time"

// ChallengeKind selects the riddle or quiz flavour of a challenge.
type ChallengeKind string

const (
	ChallengeRiddle ChallengeKind = "riddle"
	ChallengeQuiz   ChallengeKind = "quiz"
)

// Challenge is a single riddle or quiz instance fetched from the Quest API.
type Challenge struct {
	Text              string   `json:"text"`
	Complexity        int      `json:"complexity"`
	Hint              string   `json:"hint,omitempty"`
	Options           []string `json:"options,omitempty"`
	AttemptsRemaining int      `json:"attempts_remaining"`
}

// Verdict is the Quest API's judgment of a submitted answer.
// AttemptsRemaining is nil when the server does not report it.
type Verdict struct {
	Correct           bool
	Message           string
	Hint              string
	AttemptsRemaining *int
}

// FeedbackKind is the outcome shown after a submission.
type FeedbackKind string

const (
	FeedbackSuccess FeedbackKind = "success"
	FeedbackFailure FeedbackKind = "failure"
)

// Feedback is the last verdict shown to the user.
type Feedback struct {
	Kind    FeedbackKind `json:"kind"`
	Message string       `json:"message"`
	Hint    string       `json:"hint,omitempty"`
}

// ChallengePhase is the state of a challenge session.
type ChallengePhase string

const (
	PhaseIdle       ChallengePhase = "idle"
	PhaseLoading    ChallengePhase = "loading"
	PhaseReady      ChallengePhase = "ready"
	PhaseSubmitting ChallengePhase = "submitting"
	PhaseCorrect    ChallengePhase = "correct"
	PhaseIncorrect  ChallengePhase = "incorrect"
	PhaseExhausted  ChallengePhase = "exhausted"
	PhaseFailed     ChallengePhase = "failed"
)

// Bounds of the challenge model.
const (
	MinComplexity = 1
	MaxComplexity = 5
	MaxAttempts   = 5
)

// ChallengeState is the per-challenge client state.
type ChallengeState struct {
	Kind               ChallengeKind  `json:"kind"`
	Phase              ChallengePhase `json:"phase"`
	Text               string         `json:"text"`
	Complexity         int            `json:"complexity"`
	Hint               string         `json:"hint,omitempty"`
	Options            []string       `json:"options,omitempty"`
	AttemptsRemaining  int            `json:"attempts_remaining"`
	ElapsedSeconds     int            `json:"elapsed_seconds"`
	SubmissionInFlight bool           `json:"submission_in_flight"`
	LastFeedback       *Feedback      `json:"last_feedback,omitempty"`
	SuccessModal       bool           `json:"success_modal"`
	LastError          string         `json:"last_error,omitempty"`
	CanRetry           bool           `json:"can_retry"`
	LoadedAt           time.Time      `json:"loaded_at"`
}

// ClampComplexity forces c into [MinComplexity, MaxComplexity].
func ClampComplexity(c int) int {
	if c < MinComplexity {
		return MinComplexity
	}
	if c > MaxComplexity {
		return MaxComplexity
	}
	return c
}

// ClampAttempts forces a into [0, MaxAttempts].
func ClampAttempts(a int) int {
	if a < 0 {
		return 0
	}
	if a > MaxAttempts {
		return MaxAttempts
	}
	return a
}
