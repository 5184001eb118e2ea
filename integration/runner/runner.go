package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/interrogation-engine/internal/handlers"
	"github.com/jwebster45206/interrogation-engine/pkg/chat"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes scripted interrogations against a running API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	CaseOverride      string // If set, overrides the case for all test suites
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 90 * time.Second},
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite in a fresh session, deleting the
// session afterwards.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	caseID := suite.Case
	if r.CaseOverride != "" {
		caseID = r.CaseOverride
	}
	sessionID, err := r.createSession(ctx, caseID)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = sessionID
	defer func() {
		if _, err := r.do(context.Background(), http.MethodDelete, "/v1/sessions/"+sessionID.String(), nil, nil); err != nil {
			r.Logger("    Warning: failed to delete session %s: %v", sessionID, err)
		}
	}()

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, sessionID, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep executes a single test step. A question that times out upstream
// is retried once.
func (r *Runner) runStep(ctx context.Context, sessionID uuid.UUID, step TestStep) TestResult {
	for attempt := 1; ; attempt++ {
		result, status := r.executeStep(ctx, sessionID, step)
		if status == http.StatusGatewayTimeout && attempt == 1 && wantStatus(step.Expectations) != status {
			r.Logger("    Timeout detected, retrying step: %s", step.Name)
			continue
		}
		return result
	}
}

func (r *Runner) executeStep(ctx context.Context, sessionID uuid.UUID, step TestStep) (TestResult, int) {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error, status int) (TestResult, int) {
		result.Error = err
		result.Duration = time.Since(start)
		return result, status
	}
	base := "/v1/sessions/" + sessionID.String()

	status := http.StatusOK
	if step.Character != "" {
		var err error
		status, err = r.do(ctx, http.MethodPost, base+"/character",
			chat.SelectCharacterRequest{CharacterID: step.Character}, nil)
		// A failed selection is only an expected outcome of a select-only step.
		if err != nil && (status == 0 || step.Question != "") {
			return fail(fmt.Errorf("failed to select %s: %w", step.Character, err), status)
		}
	}

	var reply *chat.QuestionResponse
	switch step.Question {
	case "":
	case ResetSessionPrompt:
		var err error
		if status, err = r.do(ctx, http.MethodPost, base+"/reset", nil, nil); err != nil {
			return fail(fmt.Errorf("failed to reset session: %w", err), status)
		}
		result.IsReset = true
		result.ResponseText = "[SESSION RESET]"
	default:
		var resp chat.QuestionResponse
		var err error
		status, err = r.do(ctx, http.MethodPost, base+"/questions", chat.QuestionRequest{Question: step.Question}, &resp)
		if err != nil && status == 0 {
			return fail(fmt.Errorf("failed to ask question: %w", err), status)
		}
		if err == nil {
			reply = &resp
			result.ResponseText = resp.Message
		}
	}

	var session *handlers.SessionResponse
	if step.Expectations.needsSession() {
		var s handlers.SessionResponse
		if st, err := r.do(ctx, http.MethodGet, base, nil, &s); err != nil {
			return fail(fmt.Errorf("failed to read session: %w", err), st)
		}
		session = &s
	}

	if err := checkExpectations(step.Expectations, status, reply, session); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err), status)
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result, status
}

func (r *Runner) createSession(ctx context.Context, caseID string) (uuid.UUID, error) {
	var created handlers.SessionResponse
	if _, err := r.do(ctx, http.MethodPost, "/v1/sessions", chat.CreateSessionRequest{CaseID: caseID}, &created); err != nil {
		return uuid.UUID{}, err
	}
	return created.ID, nil
}

// do sends a JSON request. A non-2xx status is returned together with an
// error carrying the API's error message; out is only decoded on success.
func (r *Runner) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error == "" {
			return resp.StatusCode, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(data))
		}
		return resp.StatusCode, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, errResp.Error)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func wantStatus(exp Expectations) int {
	if exp.Status != nil {
		return *exp.Status
	}
	return http.StatusOK
}

// checkExpectations validates a step outcome. reply is nil when the step
// asked nothing or the question failed; session is nil unless exp needs it.
func checkExpectations(exp Expectations, status int, reply *chat.QuestionResponse, session *handlers.SessionResponse) error {
	if want := wantStatus(exp); status != want {
		return fmt.Errorf("expected status %d, got %d", want, status)
	}

	if reply != nil {
		if exp.Emotion != nil && reply.Emotion != *exp.Emotion {
			return fmt.Errorf("expected emotion %s, got %s", *exp.Emotion, reply.Emotion)
		}
		if exp.ReplyState != nil && reply.State != *exp.ReplyState {
			return fmt.Errorf("expected reply state %s, got %s", *exp.ReplyState, reply.State)
		}
		if exp.Confessed != nil && reply.Confessed != *exp.Confessed {
			return fmt.Errorf("expected confessed to be %t, got %t", *exp.Confessed, reply.Confessed)
		}
		if err := checkResponse(exp, reply.Message); err != nil {
			return err
		}
	} else if exp.Emotion != nil || exp.ReplyState != nil || exp.Confessed != nil {
		return fmt.Errorf("expected a reply, got none")
	}

	if session != nil {
		if exp.State != nil && string(session.State) != *exp.State {
			return fmt.Errorf("expected session state %s, got %s", *exp.State, session.State)
		}
		if exp.TotalQuestions != nil && session.TotalQuestions != *exp.TotalQuestions {
			return fmt.Errorf("expected total_questions to be %d, got %d", *exp.TotalQuestions, session.TotalQuestions)
		}
		if exp.ConfessedIDs != nil {
			got := slices.Clone(session.Confessed)
			want := slices.Clone(exp.ConfessedIDs)
			slices.Sort(got)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				return fmt.Errorf("expected confessed %v, got %v", exp.ConfessedIDs, session.Confessed)
			}
		}
	}

	return nil
}

func checkResponse(exp Expectations, responseText string) error {
	lowerResponse := strings.ToLower(responseText)
	for _, expectedText := range exp.ResponseContains {
		if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.ResponseNotContains {
		if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	if exp.ResponseMinLength != nil && len(responseText) < *exp.ResponseMinLength {
		return fmt.Errorf("expected response length >= %d, got %d", *exp.ResponseMinLength, len(responseText))
	}
	if exp.ResponseMaxLength != nil && len(responseText) > *exp.ResponseMaxLength {
		return fmt.Errorf("expected response length <= %d, got %d", *exp.ResponseMaxLength, len(responseText))
	}
	return nil
}
