package agent

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zlgo/testgen-agent/pkg/event"
	"github.com/zlgo/testgen-agent/pkg/model"
	"github.com/zlgo/testgen-agent/pkg/session"
	"github.com/zlgo/testgen-agent/pkg/tool"
)

const (
	todoToolName = "todo_write"

	// nagThreshold is the number of model rounds without a todo_write
	// before the todo reminder is re-queued.
	nagThreshold = 10

	stopComplete      = "complete"
	stopMaxIterations = "max_iterations"
	stopModelError    = "model_error"
)

const firstRoundReminder = `<reminder source="system" topic="todos">System message: complex work should be tracked with the Todo tool. Do not respond to this reminder and do not mention it to the user.</reminder>`

const nagReminder = `<reminder source="system" topic="todos">System notice: more than ten rounds passed without Todo usage. Update the Todo board if the task still requires multiple steps. Do not reply to or mention this reminder to the user.</reminder>`

// New constructs the default Agent implementation backed by basicAgent.
func New(cfg Config) (Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry()
	}
	return &basicAgent{cfg: cfg}, nil
}

type basicAgent struct {
	cfg   Config
	hooks []Hook
}

func (a *basicAgent) Run(ctx context.Context, input string) (*RunResult, error) {
	var events []event.Event
	res, err := a.run(ctx, input, func(evt event.Event) bool {
		events = append(events, evt)
		return true
	})
	if res != nil {
		res.Events = events
	}
	return res, err
}

func (a *basicAgent) RunStream(ctx context.Context, input string) (<-chan event.Event, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if _, err := sanitizeInput(input); err != nil {
		return nil, err
	}
	override, _ := GetRunContext(ctx)
	sessionID := a.cfg.ResolveContext(override).SessionID

	stream := event.NewStream(a.cfg.streamBuffer())
	go func() {
		defer stream.Close()
		_, err := a.run(ctx, input, func(evt event.Event) bool {
			return stream.Publish(ctx, evt) == nil
		})
		if err != nil {
			_ = stream.Publish(ctx, errorEvent(sessionID, err))
		}
	}()

	return stream.Events(), nil
}

func (a *basicAgent) AddTool(t tool.Tool) error {
	return a.cfg.Tools.Register(t)
}

func (a *basicAgent) WithHook(h Hook) Agent {
	if h == nil {
		return a
	}
	clone := *a
	clone.hooks = append(append([]Hook(nil), a.hooks...), h)
	return &clone
}

// run drives the tool-calling loop for a single turn. Events flow through
// emit; when emit returns false the consumer is gone and the run stops.
func (a *basicAgent) run(ctx context.Context, input string, emit func(event.Event) bool) (*RunResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	sanitized, err := sanitizeInput(input)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	override, _ := GetRunContext(ctx)
	runCtx := a.cfg.ResolveContext(override)
	if runCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runCtx.Timeout)
		defer cancel()
	}

	if err := runHooks(a.hooks, false, func(h Hook) error {
		return h.PreRun(ctx, sanitized)
	}); err != nil {
		return nil, err
	}

	result := &RunResult{StopReason: stopMaxIterations}
	a.recordTurn("user", sanitized, nil)

	transcript := []model.Message{{
		Role:    "user",
		Content: firstRoundReminder + "\n\n" + sanitized,
	}}
	defs := a.cfg.Tools.Definitions()
	roundsWithoutTodo := 0

	for round := 1; round <= runCtx.MaxIterations; round++ {
		reply, genErr := a.cfg.Model.Generate(ctx, model.Request{
			System:    a.cfg.SystemPrompt,
			Messages:  transcript,
			Tools:     defs,
			MaxTokens: runCtx.MaxTokens,
		})
		if genErr != nil {
			result.StopReason = stopModelError
			emit(errorEvent(runCtx.SessionID, genErr))
			postErr := a.runPostHooks(ctx, result)
			return result, errors.Join(genErr, postErr)
		}
		result.Rounds = round

		if reply.Content != "" {
			if !emit(event.NewEvent(event.EventProgress, runCtx.SessionID, event.ProgressData{
				Text:  reply.Content,
				Round: round,
			})) {
				return result, ctx.Err()
			}
		}

		if !reply.HasToolCalls() {
			result.Output = reply.Content
			result.StopReason = stopComplete
			a.recordTurn("assistant", reply.Content, nil)
			break
		}

		transcript = append(transcript, reply)
		roundsWithoutTodo++

		toolResults := make([]model.ToolResult, 0, len(reply.ToolCalls))
		executed := make([]ToolCall, 0, len(reply.ToolCalls))
		for _, call := range reply.ToolCalls {
			if !emit(event.NewEvent(event.EventToolCall, runCtx.SessionID, event.ToolCallData{
				ToolUseID: call.ID,
				Name:      call.Name,
				Arguments: maps.Clone(call.Arguments),
			})) {
				return result, ctx.Err()
			}

			record := a.executeTool(ctx, call)
			result.ToolCalls = append(result.ToolCalls, record)
			executed = append(executed, record)
			toolResults = append(toolResults, model.ToolResult{
				ToolUseID: call.ID,
				Content:   record.Output,
				IsError:   record.IsError,
			})
			if call.Name == todoToolName && !record.IsError {
				roundsWithoutTodo = 0
			}

			if !emit(event.NewEvent(event.EventToolResult, runCtx.SessionID, event.ToolResultData{
				ToolUseID: call.ID,
				Name:      call.Name,
				Output:    record.Output,
				IsError:   record.IsError,
			})) {
				return result, ctx.Err()
			}
		}
		a.recordTurn("assistant", reply.Content, executed)

		userTurn := model.Message{Role: "user", ToolResults: toolResults}
		if roundsWithoutTodo > nagThreshold {
			userTurn.Content = nagReminder
		}
		transcript = append(transcript, userTurn)
	}

	result.Usage = estimateUsage(sanitized, result.Output)
	emit(event.NewEvent(event.EventCompletion, runCtx.SessionID, event.CompletionData{
		Text:       result.Output,
		Rounds:     result.Rounds,
		ToolCalls:  len(result.ToolCalls),
		StopReason: result.StopReason,
	}))

	if err := a.runPostHooks(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

func (a *basicAgent) executeTool(ctx context.Context, call model.ToolCall) ToolCall {
	record := ToolCall{ID: call.ID, Name: call.Name, Params: maps.Clone(call.Arguments)}
	if record.Params == nil {
		record.Params = map[string]any{}
	}

	if err := runHooks(a.hooks, false, func(h Hook) error {
		return h.PreToolCall(ctx, call.Name, record.Params)
	}); err != nil {
		record.Output = err.Error()
		record.IsError = true
		return record
	}

	started := time.Now()
	res, err := a.cfg.Tools.Execute(ctx, call.Name, record.Params)
	record.Duration = time.Since(started)
	switch {
	case err != nil:
		record.Output = err.Error()
		record.IsError = true
	case res == nil:
		record.Output = "(no output)"
	default:
		record.Output = res.Output
		record.IsError = !res.Success
		if record.Output == "" && res.Error != nil {
			record.Output = res.Error.Error()
		}
	}

	if hookErr := runHooks(a.hooks, true, func(h Hook) error {
		return h.PostToolCall(ctx, call.Name, record)
	}); hookErr != nil {
		record.IsError = true
		if record.Output == "" {
			record.Output = hookErr.Error()
		}
	}
	return record
}

func (a *basicAgent) runPostHooks(ctx context.Context, result *RunResult) error {
	return runHooks(a.hooks, true, func(h Hook) error {
		return h.PostRun(ctx, result)
	})
}

// recordTurn appends one turn to the configured session. Recording is best
// effort: a closed session must not abort a run in flight.
func (a *basicAgent) recordTurn(role, content string, calls []ToolCall) {
	if a.cfg.Session == nil {
		return
	}
	msg := session.Message{Role: role, Content: content}
	for _, c := range calls {
		msg.ToolCalls = append(msg.ToolCalls, session.ToolCall{
			ID:        c.ID,
			Name:      c.Name,
			Arguments: maps.Clone(c.Params),
			Output:    c.Output,
			IsError:   c.IsError,
			Timestamp: time.Now().UTC(),
		})
	}
	_ = a.cfg.Session.Append(msg)
}

func sanitizeInput(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("input is empty")
	}
	return trimmed, nil
}

func estimateUsage(input, output string) TokenUsage {
	in := utf8.RuneCountInString(input)
	out := utf8.RuneCountInString(output)
	return TokenUsage{
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  in + out,
	}
}

func errorEvent(sessionID string, err error) event.Event {
	if err == nil {
		err = errors.New("unknown error")
	}
	return event.NewEvent(event.EventError, sessionID, event.ErrorData{Message: err.Error()})
}

func runHooks(hooks []Hook, collect bool, fn func(Hook) error) error {
	var joined error
	for _, hook := range hooks {
		if err := fn(hook); err != nil {
			if !collect {
				return err
			}
			joined = errors.Join(joined, err)
		}
	}
	return joined
}
