package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	modelpkg "github.com/zlgo/testgen-agent/pkg/model"
)

// Ensure AnthropicModel implements the Model interface.
var _ modelpkg.Model = (*AnthropicModel)(nil)

// AnthropicModel is a concrete model backed by Anthropic's Messages API.
type AnthropicModel struct {
	client  *http.Client
	baseURL string
	model   string
	headers map[string]string
	opts    modelOptions
}

// Generate performs a blocking Anthropic Messages API call.
func (m *AnthropicModel) Generate(ctx context.Context, req modelpkg.Request) (modelpkg.Message, error) {
	payload := m.buildPayload(req, false)
	resp, err := m.doRequest(ctx, payload)
	if err != nil {
		return modelpkg.Message{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return modelpkg.Message{}, readAPIError(resp)
	}

	var msgResp MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return modelpkg.Message{}, fmt.Errorf("decode anthropic response: %w", err)
	}

	return convertResponse(msgResp), nil
}

// GenerateStream invokes the Anthropic streaming endpoint (SSE) and relays
// incremental chunks into cb. Tool input arrives as JSON deltas and is
// assembled before the final chunk is delivered.
func (m *AnthropicModel) GenerateStream(ctx context.Context, req modelpkg.Request, cb modelpkg.StreamCallback) error {
	if cb == nil {
		return errors.New("anthropic stream callback is required")
	}

	payload := m.buildPayload(req, true)
	resp, err := m.doRequest(ctx, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return readAPIError(resp)
	}

	acc := newStreamAccumulator()
	finalSent := false
	streamErr := consumeSSE(ctx, resp.Body, func(_ string, data string) error {
		data = strings.TrimSpace(data)
		if data == "" {
			return nil
		}

		var envelope StreamEventEnvelope
		if err := json.Unmarshal([]byte(data), &envelope); err != nil {
			return fmt.Errorf("decode anthropic stream envelope: %w", err)
		}

		switch envelope.Type {
		case "content_block_start":
			var start ContentBlockStartEvent
			if err := json.Unmarshal([]byte(data), &start); err != nil {
				return fmt.Errorf("decode anthropic block start: %w", err)
			}
			acc.startBlock(start)
			return nil
		case "content_block_delta":
			var delta ContentBlockDeltaEvent
			if err := json.Unmarshal([]byte(data), &delta); err != nil {
				return fmt.Errorf("decode anthropic delta: %w", err)
			}
			chunk := acc.applyDelta(delta)
			if chunk == "" {
				return nil
			}
			return cb(modelpkg.StreamResult{Message: modelpkg.Message{Role: "assistant", Content: chunk}})
		case "content_block_stop":
			return acc.stopBlock()
		case "message_delta":
			var md MessageDeltaEvent
			if err := json.Unmarshal([]byte(data), &md); err != nil {
				return fmt.Errorf("decode anthropic message delta: %w", err)
			}
			if md.Delta.StopReason != nil {
				acc.stopReason = *md.Delta.StopReason
			}
			return nil
		case "message_stop":
			if finalSent {
				return nil
			}
			finalSent = true
			return cb(modelpkg.StreamResult{Message: acc.message(), Final: true})
		default:
			return nil
		}
	})

	if streamErr != nil {
		return streamErr
	}

	if !finalSent {
		return cb(modelpkg.StreamResult{Message: acc.message(), Final: true})
	}

	return nil
}

func (m *AnthropicModel) buildPayload(req modelpkg.Request, stream bool) MessageRequest {
	systemText, chatMessages := toAnthropicMessages(req.Messages)
	for _, extra := range []string{req.System, m.opts.System} {
		if extra == "" {
			continue
		}
		if systemText != "" {
			systemText = systemText + "\n\n" + extra
		} else {
			systemText = extra
		}
	}

	payload := MessageRequest{
		Model:     m.model,
		Messages:  chatMessages,
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = m.opts.MaxTokens
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = defaultMaxTokens
	}

	for _, def := range req.Tools {
		payload.Tools = append(payload.Tools, ToolParam{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}

	if systemText != "" {
		payload.System = systemText
	}
	if m.opts.Metadata != nil {
		payload.Metadata = maps.Clone(m.opts.Metadata)
	}
	if m.opts.Temperature != nil {
		payload.Temperature = m.opts.Temperature
	}
	if m.opts.TopP != nil {
		payload.TopP = m.opts.TopP
	}
	if m.opts.TopK != nil {
		payload.TopK = m.opts.TopK
	}

	return payload
}

func (m *AnthropicModel) doRequest(ctx context.Context, payload MessageRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode anthropic request: %w", err)
	}

	endpoint := m.baseURL + messagesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create anthropic request: %w", err)
	}

	for k, v := range m.headers {
		if v == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	return m.client.Do(req)
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic api status %d: %w", resp.StatusCode, err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var apiErr ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return APIError{StatusCode: resp.StatusCode, Type: apiErr.Error.Type, Message: apiErr.Error.Message}
	}

	return APIError{StatusCode: resp.StatusCode, Message: string(body)}
}

func convertResponse(resp MessageResponse) modelpkg.Message {
	msg := modelpkg.Message{Role: resp.Role, StopReason: resp.StopReason}
	var text strings.Builder
	var toolCalls []modelpkg.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, modelpkg.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	msg.Content = text.String()
	msg.ToolCalls = toolCalls
	if msg.Role == "" {
		msg.Role = "assistant"
	}
	return msg
}

func toAnthropicMessages(messages []modelpkg.Message) (string, []MessageParam) {
	var systemParts []string
	out := make([]MessageParam, 0, len(messages))
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "system" {
			if msg.Content != "" {
				systemParts = append(systemParts, msg.Content)
			}
			continue
		}

		blocks := make([]ContentBlock, 0, 1+len(msg.ToolCalls)+len(msg.ToolResults))
		for _, res := range msg.ToolResults {
			blocks = append(blocks, ContentBlock{
				Type:      "tool_result",
				ToolUseID: res.ToolUseID,
				Content:   res.Content,
				IsError:   res.IsError,
			})
		}
		if msg.Content != "" {
			blocks = append(blocks, ContentBlock{Type: "text", Text: msg.Content})
		}
		for _, call := range msg.ToolCalls {
			blocks = append(blocks, ContentBlock{
				Type:  "tool_use",
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Arguments,
			})
		}
		if len(blocks) == 0 {
			blocks = append(blocks, ContentBlock{Type: "text", Text: ""})
		}

		out = append(out, MessageParam{Role: normalizeRole(role), Content: blocks})
	}

	if len(out) == 0 {
		out = append(out, MessageParam{
			Role:    "user",
			Content: []ContentBlock{{Type: "text", Text: ""}},
		})
	}
	return strings.Join(systemParts, "\n\n"), out
}

func normalizeRole(role string) string {
	switch role {
	case "assistant", "model":
		return "assistant"
	default:
		return "user"
	}
}
