package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/domain/billing"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	"github.com/sjak1/rabbithole-backend/pkg/observability"
	"github.com/sjak1/rabbithole-backend/pkg/streaming"
)

// systemPreamble is prepended to every chat completion request. Title
// synthesis builds its own prompt and does not use it.
const systemPreamble = "You are a helpful assistant."

// ChatService is the metered completion gateway: every call to the language
// model provider goes through it, paired with a balance check before and a
// settlement after. A completion is settled only when the provider reported
// final usage; a mid-stream failure or a disconnected caller charges nothing.
type ChatService struct {
	client  ports.CompletionClient
	ledger  *CreditLedger
	model   string
	metrics *observability.Metrics
	tracer  *observability.Tracer
	logger  *zap.Logger
}

// NewChatService creates a new chat service. metrics and tracer may be nil,
// which disables the corresponding instrumentation.
func NewChatService(
	client ports.CompletionClient,
	ledger *CreditLedger,
	model string,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		client:  client,
		ledger:  ledger,
		model:   model,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
}

// StreamReply starts a streaming completion for the given conversation and
// returns the event stream. Errors before the first delta (no credit, bad
// input, provider refused the request) are returned directly so the caller
// can answer with a plain HTTP error; once a stream is returned, all further
// outcomes arrive as stream events.
func (s *ChatService) StreamReply(ctx context.Context, userID string, messages []valueobjects.Message) (*streaming.Stream, error) {
	account, err := s.ledger.RequireBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	upstream, err := s.client.CompleteStreaming(ctx, s.withPreamble(messages))
	if err != nil {
		return nil, err
	}

	stream := streaming.New()
	go s.pump(ctx, userID, account.Credits(), upstream, stream)
	return stream, nil
}

// pump drains the provider stream into the caller-facing stream and settles
// credits on clean completion.
func (s *ChatService) pump(ctx context.Context, userID string, balanceBefore float64, upstream ports.CompletionStream, stream *streaming.Stream) {
	defer upstream.Close()

	var full strings.Builder
	var usage billing.UsageRecord

	for {
		delta, err := upstream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.finish(ctx, userID, balanceBefore, full.String(), usage, stream)
				return
			}
			if ctx.Err() != nil {
				// Caller is gone; nobody to deliver a terminal event to.
				stream.Abandon()
				return
			}
			s.logger.Error("Completion stream failed",
				zap.String("userID", userID),
				zap.Error(err),
			)
			stream.Fail("stream failed")
			return
		}

		if delta.Usage != nil {
			// Only the final report is authoritative; keep overwriting.
			usage = *delta.Usage
		}
		if delta.Content != "" {
			full.WriteString(delta.Content)
			stream.Send(delta.Content)
		}
	}
}

// finish settles the completion cost and delivers the terminal event.
func (s *ChatService) finish(ctx context.Context, userID string, balanceBefore float64, fullContent string, usage billing.UsageRecord, stream *streaming.Stream) {
	cost := billing.Cost(usage, billing.RateFor(s.model))

	balance, err := s.ledger.Settle(ctx, userID, cost)
	if err != nil {
		// The reply was delivered; report the pre-request balance rather than
		// failing a stream the user already read.
		s.logger.Error("Settlement failed after completed stream",
			zap.String("userID", userID),
			zap.Float64("cost", cost),
			zap.Error(err),
		)
		balance = balanceBefore
	}

	s.record(ctx, usage, cost)

	stream.Complete(balance, fullContent)
}

func (s *ChatService) withPreamble(messages []valueobjects.Message) []valueobjects.Message {
	out := make([]valueobjects.Message, 0, len(messages)+1)
	out = append(out, valueobjects.Message{Role: valueobjects.RoleSystem, Content: systemPreamble})
	return append(out, messages...)
}

// CompleteMetered runs a non-streaming completion under the same metering
// discipline and returns the text together with the post-settlement balance.
func (s *ChatService) CompleteMetered(ctx context.Context, userID string, messages []valueobjects.Message) (string, float64, error) {
	if _, err := s.ledger.RequireBalance(ctx, userID); err != nil {
		return "", 0, err
	}

	var result *ports.Completion
	err := s.traced(ctx, "llm.complete", func(ctx context.Context) error {
		var callErr error
		result, callErr = s.client.Complete(ctx, messages)
		return callErr
	})
	if err != nil {
		return "", 0, err
	}

	cost := billing.Cost(result.Usage, billing.RateFor(s.model))
	balance, err := s.ledger.Settle(ctx, userID, cost)
	if err != nil {
		return "", 0, err
	}

	s.record(ctx, result.Usage, cost)

	return result.Text, balance, nil
}

// traced runs fn under a trace subsegment when tracing is enabled.
func (s *ChatService) traced(ctx context.Context, name string, fn func(context.Context) error) error {
	if s.tracer == nil {
		return fn(ctx)
	}
	return s.tracer.TraceFunction(ctx, name, fn)
}

func (s *ChatService) record(ctx context.Context, usage billing.UsageRecord, cost float64) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCompletion(ctx, s.model, usage.InputTokens, usage.OutputTokens, cost)
}
