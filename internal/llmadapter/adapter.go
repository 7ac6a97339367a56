package llmadapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kbforge/kbforge/internal/domain"
)

// SentinelMarker is the literal token every prompt instructs the model
// to end its response with. Its absence is the primary truncation
// signal.
const SentinelMarker = "<<<END-OF-RESPONSE>>>"

const compliantMarker = "COMPLIANT"
const truncatedMarker = "TRUNCATED"

// Options configures one Adapter's retry and review budgets.
type Options struct {
	MaxContinuationAttempts int
	MaxReviewIterations     int
	// MaxTransportRetries bounds how many times complete retries a
	// failed client.Complete call before surfacing *domain.LLMTransportError.
	// Zero means one attempt with no retry.
	MaxTransportRetries int
}

// transportRetryBackoff is the base delay between transport retries,
// doubled on each successive attempt.
const transportRetryBackoff = 200 * time.Millisecond

// Result is what Analyze returns for a single accepted (possibly
// best-effort) response.
type Result struct {
	Text         string
	NonCompliant bool
}

// Adapter turns a single "analyze this" request into an accepted
// response or a hard failure. Conversation state (the growing message
// history for continuation retries) lives entirely inside one Analyze
// call; nothing is retained across calls.
type Adapter struct {
	client Client
	opts   Options
	debug  *Recorder
	logger *zap.Logger
}

// New builds an Adapter. debug may be nil to disable replay recording.
func New(client Client, opts Options, debug *Recorder, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, opts: opts, debug: debug, logger: logger}
}

// Analyze runs prompt through the full truncation-detection,
// continuation-retry, and reviewer-loop contract, returning the
// accepted text or a domain error (*domain.TruncationDetected on hard
// failure, *domain.LLMTransportError if the underlying client failed on
// the initial or a reviewer call). A client failure on a continuation
// turn leaves the response without its sentinel and is reported as
// *domain.TruncationDetected.
func (a *Adapter) Analyze(ctx context.Context, stage, targetPath, prompt string) (Result, error) {
	conversationID := newConversationID(targetPath)

	if a.debug != nil && a.debug.ReplayMode {
		if text, ok := a.debug.Load(stage, targetPath); ok {
			return Result{Text: text}, nil
		}
	}

	messages := []Message{{Role: "user", Content: withSentinelInstruction(prompt)}}

	response, err := a.complete(ctx, messages)
	if err != nil {
		return Result{}, err
	}
	a.logger.Debug("initial completion received",
		zap.String("conversation_id", conversationID), zap.String("target", targetPath))

	response, attempts, truncated := a.ensureSentinel(ctx, messages, response)
	if truncated {
		return Result{}, &domain.TruncationDetected{Target: targetPath, Attempts: attempts}
	}

	response, nonCompliant, err := a.review(ctx, targetPath, response, attempts)
	if err != nil {
		return Result{}, err
	}

	if a.debug != nil && a.debug.RecordMode {
		a.debug.Save(stage, targetPath, prompt, response)
	}

	return Result{Text: response, NonCompliant: nonCompliant}, nil
}

// ensureSentinel implements mechanism (1): if response already carries
// the sentinel, return immediately. Otherwise retries up to
// MaxContinuationAttempts continuation turns in the same conversation,
// merging each continuation onto the prior partial response.
func (a *Adapter) ensureSentinel(ctx context.Context, messages []Message, response string) (string, int, bool) {
	attempts := 0
	for !hasSentinel(response) {
		if attempts >= a.opts.MaxContinuationAttempts {
			return response, attempts, true
		}
		attempts++

		messages = append(messages,
			Message{Role: "assistant", Content: response},
			Message{Role: "user", Content: continuationPrompt})

		cont, err := a.complete(ctx, messages)
		if err != nil {
			return response, attempts, true
		}
		response = mergeOverlap(response, cont)
	}
	return response, attempts, false
}

// review implements the bounded reviewer loop, which also serves as
// truncation mechanisms (2) and (3): a reviewer response of
// "TRUNCATED" re-enters continuation retry, and a corrected response
// that itself lacks the sentinel is still a hard truncation failure.
func (a *Adapter) review(ctx context.Context, targetPath, response string, priorAttempts int) (string, bool, error) {
	for i := 0; i < a.opts.MaxReviewIterations; i++ {
		verdict, err := a.complete(ctx, []Message{{Role: "user", Content: reviewerPrompt(response)}})
		if err != nil {
			return response, false, err
		}

		trimmed := strings.TrimSpace(verdict)
		switch {
		case strings.HasPrefix(trimmed, compliantMarker):
			return response, false, nil

		case strings.Contains(trimmed, truncatedMarker):
			// The response carries the sentinel by now; drop it so
			// ensureSentinel actually requests a continuation.
			partial := strings.TrimSpace(strings.ReplaceAll(response, SentinelMarker, ""))
			recovered, attempts, truncated := a.ensureSentinel(ctx, []Message{{Role: "user", Content: withSentinelInstruction(partial)}}, partial)
			if truncated {
				return "", false, &domain.TruncationDetected{Target: targetPath, Attempts: priorAttempts + attempts}
			}
			response = recovered

		default:
			if !hasSentinel(trimmed) {
				return "", false, &domain.TruncationDetected{Target: targetPath, Attempts: priorAttempts}
			}
			response = trimmed
		}
	}

	return response, true, nil
}

// complete calls the client, retrying transient failures up to
// MaxTransportRetries times with a doubling backoff before giving up.
func (a *Adapter) complete(ctx context.Context, messages []Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxTransportRetries+1; attempt++ {
		text, err := a.client.Complete(ctx, messages)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt > a.opts.MaxTransportRetries {
			break
		}

		a.logger.Warn("llm transport call failed, retrying",
			zap.Int("attempt", attempt), zap.Error(err))

		backoff := transportRetryBackoff << (attempt - 1)
		select {
		case <-ctx.Done():
			return "", &domain.LLMTransportError{Attempt: attempt, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}
	return "", &domain.LLMTransportError{Attempt: a.opts.MaxTransportRetries + 1, Err: lastErr}
}

func hasSentinel(text string) bool {
	return strings.Contains(text, SentinelMarker)
}

func withSentinelInstruction(prompt string) string {
	return fmt.Sprintf("%s\n\nEnd your response with the literal marker %s on its own line.", prompt, SentinelMarker)
}

const continuationPrompt = "Your previous response was cut off. Continue from your last complete sentence; do not repeat anything you already said. " +
	"End your response with the literal marker " + SentinelMarker + " on its own line."

func reviewerPrompt(response string) string {
	return fmt.Sprintf(
		"Review the following response for structural compliance: required headers present, no leaked placeholders. "+
			"If it fully complies, reply with exactly %q. Otherwise reply with a corrected version ending in %s. "+
			"If the response appears cut off mid-thought, reply with exactly %q instead.\n\n---\n%s",
		compliantMarker, SentinelMarker, truncatedMarker, response)
}

// newConversationID derives a distinct conversation identity per task so
// two tasks analyzing different files never share LLM client state.
func newConversationID(targetPath string) string {
	sanitized := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(targetPath)
	return sanitized + "-" + uuid.NewString()
}
