package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/codequery-mcp/internal/llm"
	"github.com/dshills/codequery-mcp/internal/tools"
	"github.com/dshills/codequery-mcp/pkg/types"
)

// Error kinds carried by QueryError.
const (
	ErrKindSchema  = "schema_validation"
	ErrKindTimeout = "timeout"
	ErrKindLLM     = "llm_failure"
	ErrKindCancel  = "canceled"
)

// QueryError is the structured error returned to callers for any failed
// session. The process never surfaces a raw panic or malformed response to
// the caller.
type QueryError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Session status values.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
)

// Iteration bounds.
const (
	DefaultMaxIterations = 6
	MaxMaxIterations     = 12
	schemaRetries        = 2 // corrective retries after the first invalid candidate
)

// Config tunes one agent.
type Config struct {
	MaxIterations int           // Total rounds including the forced summary (default 6)
	CallTimeout   time.Duration // Deadline per model call (default 60s)
}

// Agent answers questions by iterating model calls against the tool
// registry. One Agent serves many concurrent sessions; all per-question
// state lives in the session.
type Agent struct {
	client llm.Client
	tools  *tools.Registry
	cfg    Config
}

// New creates an Agent.
func New(client llm.Client, registry *tools.Registry, cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxIterations > MaxMaxIterations {
		cfg.MaxIterations = MaxMaxIterations
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &Agent{client: client, tools: registry, cfg: cfg}
}

// entry is one line of a session transcript.
type entry struct {
	role    string // "assistant" or "observation"
	content string
}

// session holds one question's state from INIT to DONE or FAILED. Sessions
// are discarded after completion; there is no cross-session persistence.
type session struct {
	question   string
	transcript []entry
	rounds     int
	status     Status
}

func (s *session) append(role, content string) {
	s.transcript = append(s.transcript, entry{role: role, content: content})
}

// Ask runs one session to completion and returns the validated final
// answer, or a *QueryError describing the failure.
func (a *Agent) Ask(ctx context.Context, question string) (*types.FinalAnswer, error) {
	sess := &session{question: question, status: StatusRunning}
	maxRounds := a.cfg.MaxIterations

	for round := 1; round < maxRounds; round++ {
		sess.rounds = round
		prompt := buildToolPrompt(a.tools.Specs(), question, sess.transcript, round, maxRounds)

		raw, err := a.generate(ctx, prompt)
		if err != nil {
			sess.status = StatusFailed
			return nil, err
		}
		sess.append("assistant", string(raw))

		action, err := ParseAction(raw)
		if err != nil {
			// A malformed action consumes the round; the model sees why.
			sess.append("observation", fmt.Sprintf("invalid action: %v", err))
			continue
		}

		if action.Kind == ActionFinal {
			answer, err := parseFinalAnswer(action.Final)
			if err != nil {
				sess.append("observation", fmt.Sprintf("answer rejected: %v", err))
				continue
			}
			sess.status = StatusDone
			return answer, nil
		}

		// Exactly one tool executes per round; its result or error is
		// appended verbatim before the next round.
		out, err := a.tools.Call(ctx, action.Kind, action.ToolInput)
		if err != nil {
			sess.append("observation", fmt.Sprintf("%s error: %v", action.Kind, err))
			continue
		}
		sess.append("observation", fmt.Sprintf("%s result: %s", action.Kind, out))
	}

	// Forced summary: tool definitions are withheld entirely, which is what
	// guarantees termination.
	sess.rounds = maxRounds
	answer, err := a.forcedSummary(ctx, sess)
	if err != nil {
		sess.status = StatusFailed
		return nil, err
	}
	sess.status = StatusDone
	return answer, nil
}

// forcedSummary demands a final answer and retries a bounded number of
// times on schema violations with a corrective prompt.
func (a *Agent) forcedSummary(ctx context.Context, sess *session) (*types.FinalAnswer, error) {
	base := buildSummaryPrompt(sess.question, sess.transcript)
	prompt := base

	var lastErr error
	for attempt := 0; attempt <= schemaRetries; attempt++ {
		raw, err := a.generate(ctx, prompt)
		if err != nil {
			return nil, err
		}
		sess.append("assistant", string(raw))

		answer, err := parseFinalAnswer(raw)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		prompt = correctivePrompt(base, err)
	}

	return nil, &QueryError{
		Kind:    ErrKindSchema,
		Message: fmt.Sprintf("final answer failed validation after %d attempts: %v", schemaRetries+1, lastErr),
	}
}

// generate performs one model call under the per-call deadline and maps
// transport failures to structured errors.
func (a *Agent) generate(ctx context.Context, prompt string) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	raw, err := a.client.GenerateJSON(callCtx, prompt)
	if err == nil {
		return raw, nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, &QueryError{Kind: ErrKindTimeout, Message: "model call exceeded deadline"}
	case errors.Is(err, context.Canceled):
		return nil, &QueryError{Kind: ErrKindCancel, Message: "session canceled"}
	default:
		return nil, &QueryError{Kind: ErrKindLLM, Message: err.Error()}
	}
}
