package runner

import (
	"time"

	"github.com/google/uuid"
)

// Special question values that trigger non-question actions
const (
	ResetSessionPrompt = "RESET_SESSION"
)

// TestSuite defines a scripted interrogation against one case.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name"`
	Case  string     `json:"case,omitempty"`  // Used for regular tests
	Steps []TestStep `json:"steps,omitempty"` // Used for regular tests
	Cases []string   `json:"cases,omitempty"` // Used for suite tests (list of suite files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep selects a suspect, asks a question, or both, and then checks the
// outcome. Use question: "RESET_SESSION" to clear every conversation.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Character    string       `json:"character,omitempty"`
	Question     string       `json:"question,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// HTTP status of the question request. Defaults to 200.
	Status *int `json:"status,omitempty"`

	// Reply fields
	Emotion    *string `json:"emotion,omitempty"`
	ReplyState *string `json:"reply_state,omitempty"` // CONTINUE or END
	Confessed  *bool   `json:"confessed,omitempty"`

	// Session fields, read back after the step
	State          *string  `json:"state,omitempty"` // IDLE, READY or ENDED
	TotalQuestions *int     `json:"total_questions,omitempty"`
	ConfessedIDs   []string `json:"confessed_ids,omitempty"`

	// Response Analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`
	ResponseMaxLength   *int     `json:"response_max_length,omitempty"`
}

// needsSession reports whether the session must be fetched after the step.
func (e Expectations) needsSession() bool {
	return e.State != nil || e.TotalQuestions != nil || e.ConfessedIDs != nil
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	IsReset      bool // True if this was a RESET_SESSION step (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the session used for this test
}
