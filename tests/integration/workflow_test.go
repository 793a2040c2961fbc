package integration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zlgo/testgen-agent/pkg/agent"
	"github.com/zlgo/testgen-agent/pkg/model"
	"github.com/zlgo/testgen-agent/pkg/session"
	"github.com/zlgo/testgen-agent/pkg/testgen"
	"github.com/zlgo/testgen-agent/pkg/todo"
	"github.com/zlgo/testgen-agent/pkg/tool"
	toolbuiltin "github.com/zlgo/testgen-agent/pkg/tool/builtin"
	"github.com/zlgo/testgen-agent/pkg/workspace"
)

const wiperDefinition = `{
  "functionName": "雨刮故障提示",
  "powerModes": ["OFF", "ON"],
  "signalInterface": {
    "CAN": [
      {
        "signalName": "WiperFailSts",
        "definedValues": [
          {"value": "0x0", "description": "正常"},
          {"value": "0x1", "description": "故障"}
        ]
      }
    ]
  },
  "logicFlow": {
    "paths": [
      {
        "pathId": "P1",
        "pathDescription": "雨刮故障点亮提示",
        "conditions": {
          "preconditions": [{"type": "powerMode", "value": "ON"}],
          "trigger": {"logic": "OR", "signals": [{"signalName": "WiperFailSts", "value": ["0x1"]}]}
        },
        "outputs": {
          "indicators": [{"name": "雨刮故障指示灯", "action": "点亮"}],
          "texts": ["雨刮系统故障"],
          "sounds": [],
          "images": []
        }
      }
    ]
  }
}`

// TestGenerationWorkflow drives the full tool pipeline through the agent
// loop with a scripted model: todo plan, read, init, extract, strategies,
// infer, apply, export, summary.
func TestGenerationWorkflow(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "definition.json"), []byte(wiperDefinition), 0o644); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	ws, err := workspace.New(root)
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}

	plan := []any{
		map[string]any{"id": "1", "content": "读取JSON文件", "activeForm": "read_file", "status": "in_progress"},
		map[string]any{"id": "2", "content": "生成并导出用例", "activeForm": "export_test_cases", "status": "pending"},
	}
	script := &scriptedModel{replies: []model.Message{
		toolReply("tu_01", "todo_write", map[string]any{"todos": plan}),
		toolReply("tu_02", "read_file", map[string]any{"path": "definition.json"}),
		toolReply("tu_03", "initialize_test_gen", map[string]any{"json_data": wiperDefinition}),
		toolReply("tu_04", "extract_covered_combinations", nil),
		toolReply("tu_05", "execute_strategies", nil),
		toolReply("tu_06", "infer_outputs_with_ai", nil),
		toolReply("tu_07", "apply_inferred_outputs", map[string]any{"inferred_results": "[]"}),
		toolReply("tu_08", "export_test_cases", map[string]any{"output_format": "json"}),
		{Role: "assistant", Content: "已完成测试用例生成并导出。", StopReason: "end_turn"},
	}}

	reg := tool.NewRegistry()
	builtins := []tool.Tool{
		toolbuiltin.NewBashTool(ws, 5*time.Second, 100_000),
		toolbuiltin.NewReadFileTool(ws),
		toolbuiltin.NewWriteFileTool(ws),
		toolbuiltin.NewEditTextTool(ws),
		toolbuiltin.NewTodoWriteTool(todo.NewBoard()),
	}
	// inference runs against its own model instance
	builtins = append(builtins, toolbuiltin.NewTestGenSuite(ws, &inferenceModel{}, 4096).Tools()...)
	for _, tl := range builtins {
		if err := reg.Register(tl); err != nil {
			t.Fatalf("register tool: %v", err)
		}
	}

	sess, err := session.NewMemorySession("workflow")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	ag, err := agent.New(agent.Config{
		Name:         "workflow-test",
		Model:        script,
		Tools:        reg,
		Session:      sess,
		SystemPrompt: "integration",
		DefaultContext: agent.RunContext{
			SessionID:     "workflow",
			WorkDir:       root,
			MaxIterations: 20,
		},
	})
	if err != nil {
		t.Fatalf("agent: %v", err)
	}

	res, err := ag.Run(context.Background(), "请根据 definition.json 生成测试用例")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.StopReason != "complete" {
		t.Fatalf("stop reason = %s", res.StopReason)
	}
	if res.Output != "已完成测试用例生成并导出。" {
		t.Fatalf("output = %s", res.Output)
	}
	if len(res.ToolCalls) != 8 {
		t.Fatalf("tool calls = %d", len(res.ToolCalls))
	}
	for _, call := range res.ToolCalls {
		if call.Failed() {
			t.Fatalf("tool %s failed: %s", call.Name, call.Output)
		}
	}

	data, err := os.ReadFile(filepath.Join(root, "generated_test_cases.json"))
	if err != nil {
		t.Fatalf("exported cases missing: %v", err)
	}
	var doc testgen.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if doc.Function != "雨刮故障提示" {
		t.Fatalf("function = %s", doc.Function)
	}
	if doc.TotalCases < 2 {
		t.Fatalf("total cases = %d", doc.TotalCases)
	}

	// the transcript records every turn of the loop
	msgs, err := sess.List(session.Filter{})
	if err != nil {
		t.Fatalf("list session: %v", err)
	}
	if len(msgs) != 10 {
		t.Fatalf("session messages = %d", len(msgs))
	}
}

func toolReply(id, name string, args map[string]any) model.Message {
	return model.Message{
		Role:       "assistant",
		StopReason: "tool_use",
		ToolCalls:  []model.ToolCall{{ID: id, Name: name, Arguments: args}},
	}
}

type scriptedModel struct {
	replies  []model.Message
	requests []model.Request
}

func (m *scriptedModel) Generate(_ context.Context, req model.Request) (model.Message, error) {
	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return model.Message{}, errors.New("no scripted reply")
	}
	idx := len(m.requests) - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return m.replies[idx], nil
}

func (m *scriptedModel) GenerateStream(ctx context.Context, req model.Request, cb model.StreamCallback) error {
	reply, err := m.Generate(ctx, req)
	if err != nil {
		return err
	}
	return cb(model.StreamResult{Message: reply, Final: true})
}

// inferenceModel answers the output-inference prompt with an empty array,
// which makes the generator fall back to path-template defaults.
type inferenceModel struct{}

func (inferenceModel) Generate(context.Context, model.Request) (model.Message, error) {
	return model.Message{Role: "assistant", Content: "```json\n[]\n```"}, nil
}

func (inferenceModel) GenerateStream(_ context.Context, _ model.Request, cb model.StreamCallback) error {
	return cb(model.StreamResult{Message: model.Message{Role: "assistant", Content: "[]"}, Final: true})
}
