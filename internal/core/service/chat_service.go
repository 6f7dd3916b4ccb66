package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
	"github.com/guillermoBallester/tabletalk/internal/core/tool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const noOperationReply = "I could not map that request to a table operation. Try sorting, filtering, selecting, grouping or analyzing a column."

// Reply is what the user sees after one utterance.
type Reply struct {
	Utterance string         `json:"utterance"`
	Message   string         `json:"message"`
	Tools     []*tool.Output `json:"tools,omitempty"`
	Outcome   *Outcome       `json:"outcome,omitempty"`
	Model     string         `json:"model,omitempty"`
}

// ChatService turns one utterance into executed table operations: translate
// to tool calls, validate them, apply the verb rule, execute. Only one
// utterance is processed at a time.
type ChatService struct {
	translator port.Translator
	tools      *tool.Set
	table      *TableService
	catalog    *domain.Catalog
	logger     *slog.Logger
	tracer     trace.Tracer
	inst       port.Instrumentation

	processing atomic.Bool
}

func NewChatService(translator port.Translator, tools *tool.Set, table *TableService, catalog *domain.Catalog, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *ChatService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &ChatService{
		translator: translator,
		tools:      tools,
		table:      table,
		catalog:    catalog,
		logger:     logger,
		tracer:     tracer,
		inst:       inst,
	}
}

// Processing reports whether an utterance is in flight.
func (c *ChatService) Processing() bool {
	return c.processing.Load()
}

// Submit processes one utterance. It fails with domain.ErrBusy while a
// previous utterance is still in flight. Translator and tool failures are
// reported in the reply message, not as errors.
func (c *ChatService) Submit(ctx context.Context, utterance string) (*Reply, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, fmt.Errorf("%w: utterance", domain.ErrMissingParameter)
	}
	if !c.processing.CompareAndSwap(false, true) {
		return nil, domain.ErrBusy
	}
	defer c.processing.Store(false)

	ctx, span := c.tracer.Start(ctx, "ChatService.Submit")
	defer span.End()

	reply := &Reply{Utterance: utterance}

	start := time.Now()
	tr, err := c.translator.Translate(ctx, port.TranslateRequest{
		Utterance:    utterance,
		Instructions: Instructions(c.catalog, c.table.Columns()),
		Tools:        c.tools.Specs(),
	})
	c.inst.RecordTranslateDuration(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		c.logger.ErrorContext(ctx, "translation failed",
			slog.String("error.type", "translator_error"),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		reply.Message = "Sorry, I could not process that request: " + err.Error()
		return reply, nil
	}
	reply.Model = tr.Model
	span.SetAttributes(attribute.Int("llm.tool_calls", len(tr.Calls)))

	var (
		slots    []callSlot
		rejected []string
		names    []string
	)
	for _, call := range tr.Calls {
		out, err := c.tools.Run(call)
		if err != nil {
			c.logger.WarnContext(ctx, "tool call rejected",
				slog.String("mcp.tool", call.Name),
				slog.String("error.type", "validation_error"),
				slog.String("error", err.Error()),
			)
			msg := domain.UserMessage(err)
			rejected = append(rejected, msg)
			slots = append(slots, callSlot{rejected: msg})
			continue
		}
		reply.Tools = append(reply.Tools, out)
		names = append(names, out.Tool)
		slots = append(slots, callSlot{ops: len(out.Operations)})
	}

	ops := domain.Disambiguate(domain.ClassifyUtterance(utterance), tool.Operations(reply.Tools))
	if len(ops) == 0 {
		switch {
		case len(rejected) > 0:
			reply.Message = strings.Join(rejected, "; ")
		case tr.Text != "":
			reply.Message = tr.Text
		default:
			reply.Message = noOperationReply
		}
		return reply, nil
	}

	ctx = WithUtterance(WithToolName(ctx, strings.Join(names, ",")), utterance)
	outcome, err := c.table.ExecuteOperations(ctx, ops)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		reply.Message = joinInCallOrder(slots, []string{domain.UserMessage(err)})
		return reply, nil
	}
	reply.Outcome = outcome
	reply.Message = joinInCallOrder(slots, outcome.Messages)
	return reply, nil
}

// callSlot is one translated tool call: either its rejection line or the
// number of operations it contributed to the batch.
type callSlot struct {
	rejected string
	ops      int
}

// joinInCallOrder interleaves rejection lines with the per-operation
// messages of the executed batch, following the order of the tool calls.
// Disambiguation maps operations one to one, so message i belongs to
// operation i.
func joinInCallOrder(slots []callSlot, messages []string) string {
	parts := make([]string, 0, len(slots)+len(messages))
	next := 0
	for _, slot := range slots {
		if slot.rejected != "" {
			parts = append(parts, slot.rejected)
			continue
		}
		end := min(next+slot.ops, len(messages))
		parts = append(parts, messages[next:end]...)
		next = end
	}
	parts = append(parts, messages[next:]...)
	return strings.Join(parts, "; ")
}

// Instructions is the system prompt handed to the translator: the verb
// rule and the columns the tools may reference.
func Instructions(catalog *domain.Catalog, columns []string) string {
	var b strings.Builder
	b.WriteString("You operate a data table by calling tools. Never answer with numbers you computed yourself; call analyze_data instead.\n")
	b.WriteString(domain.DisambiguationGuide)
	b.WriteString("\n\nColumns:\n")
	for _, name := range columns {
		f, ok := catalog.Field(name)
		if !ok {
			fmt.Fprintf(&b, "- %s\n", name)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)", f.Name, f.Kind)
		if f.Description != "" {
			fmt.Fprintf(&b, ": %s", f.Description)
		} else if f.Label != "" {
			fmt.Fprintf(&b, ": %s", f.Label)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
