package testgen

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/zlgo/testgen-agent/pkg/model"
)

// inferenceSystemPrompt frames the model as a semantic-matching expert.
const inferenceSystemPrompt = "你是测试推理专家。基于信号描述的语义进行推理，严格遵循输出模板。"

// InferredResult is one entry of the model's inference reply.
type InferredResult struct {
	CombinationID string  `json:"combination_id"`
	Matched       bool    `json:"matched"`
	Reasoning     string  `json:"reasoning"`
	Outputs       Outputs `json:"outputs"`
}

// maxPromptCombinations caps how many combinations one prompt lists.
const maxPromptCombinations = 40

// BuildInferencePrompt asks the model to judge, per combination, whether the
// signal value descriptions semantically satisfy a known path and to derive
// the expected outputs from that path's template.
func (g *Generator) BuildInferencePrompt() string {
	defs := g.def.SignalDescriptions()
	combos := g.GeneratedList()

	var b strings.Builder
	b.WriteString("# 任务：基于语义推理测试组合的预期输出\n\n")

	b.WriteString("## 完整信号定义\n")
	defsJSON, _ := json.MarshalIndent(defs, "", "  ")
	b.Write(defsJSON)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## 已知逻辑路径（共%d个）\n", len(g.def.LogicFlow.Paths))
	for _, path := range g.def.LogicFlow.Paths {
		fmt.Fprintf(&b, "\n### 路径: %s\n", path.PathID)
		fmt.Fprintf(&b, "**功能描述**: %s\n\n", path.PathDescription)

		b.WriteString("**前置条件要求**:\n")
		for _, pc := range path.Conditions.Preconditions {
			name := pc.SignalName
			if pc.Type == "powerMode" {
				name = "powerMode"
			}
			b.WriteString("- " + name + " 必须是: " + strings.Join(describeValues(defs, name, pc.Value), ", ") + "\n")
		}

		fmt.Fprintf(&b, "\n**触发条件要求 (%s)**:\n", path.Conditions.Trigger.Logic)
		for _, sig := range path.Conditions.Trigger.Signals {
			b.WriteString("- " + sig.SignalName + " 必须是: " + strings.Join(describeValues(defs, sig.SignalName, sig.Value), ", ") + "\n")
		}

		template, _ := json.MarshalIndent(path.Outputs, "", "  ")
		b.WriteString("\n**路径输出模板**（这是推理的唯一模板）:\n```json\n")
		b.Write(template)
		b.WriteString("\n```\n---\n")
	}

	b.WriteString(`
## 推理规则

### 第一步：语义匹配判断
对于每个组合，检查其信号值的描述是否与路径要求的描述语义相同或相近。
例如"超级故障"与"故障"、"严重故障"同属故障类，语义匹配；
"无故障"表示正常，与故障类相反，语义不匹配。

### 第二步：推断输出
- 所有条件都语义匹配时：原样使用路径的输出模板。
- 任一条件语义不匹配时：基于路径输出模板推断相反状态：
  - indicators 的 action 字段："点亮"/"闪烁"/"常亮" 改为 "熄灭"
  - texts / sounds / images：清空为 []
- 不能添加路径模板中没有的字段；模板中为空的字段必须保持空。
`)

	fmt.Fprintf(&b, "\n## 待推理组合（共%d个）\n\n", len(combos))
	for i, item := range combos {
		if i >= maxPromptCombinations {
			break
		}
		b.WriteString(item.ID + ": " + describeCombination(defs, item.Combination) + "\n")
	}

	fmt.Fprintf(&b, `
## 输出格式

返回JSON数组：
[
  {
    "combination_id": "组合ID",
    "matched": true,
    "reasoning": "简短说明哪些条件匹配或不匹配",
    "outputs": {严格按照路径模板的结构}
  }
]

请开始推理所有%d个组合。
`, len(combos))

	return b.String()
}

func describeValues(defs map[string]map[string]string, signal string, values ValueList) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		desc := "未知"
		if sigDefs, ok := defs[signal]; ok {
			if d, ok := sigDefs[v]; ok {
				desc = d
			}
		}
		out = append(out, v+"("+desc+")")
	}
	return out
}

func describeCombination(defs map[string]map[string]string, combo Combination) string {
	var pre []string
	if pm := combo.Preconditions.PowerMode; pm != "" {
		pre = append(pre, "powerMode="+describeValues(defs, "powerMode", ValueList{pm})[0])
	}
	if sig := combo.Preconditions.CANSignal; sig != nil {
		pre = append(pre, sig.SignalName+"="+describeValues(defs, sig.SignalName, ValueList{sig.Value})[0])
	}
	var trig []string
	for _, sig := range combo.Trigger.CANSignals {
		trig = append(trig, sig.SignalName+"="+describeValues(defs, sig.SignalName, ValueList{sig.Value})[0])
	}
	return "前置{" + strings.Join(pre, ", ") + "}, 触发{" + strings.Join(trig, ", ") + "}"
}

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	bareArrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
)

// ParseInferenceReply extracts the JSON result array from a model reply,
// accepting fenced blocks, a bare array, or raw JSON.
func ParseInferenceReply(content string) ([]InferredResult, error) {
	candidates := make([]string, 0, 3)
	if m := fencedJSONPattern.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := bareArrayPattern.FindString(content); m != "" {
		candidates = append(candidates, m)
	}
	candidates = append(candidates, strings.TrimSpace(content))

	var lastErr error
	for _, candidate := range candidates {
		var results []InferredResult
		if err := json.Unmarshal([]byte(candidate), &results); err != nil {
			lastErr = err
			continue
		}
		return results, nil
	}
	return nil, fmt.Errorf("no JSON array found in inference reply: %w", lastErr)
}

// BackfillDefaults appends a default entry for every combination the model
// skipped, using the first path's output template.
func (g *Generator) BackfillDefaults(results []InferredResult) []InferredResult {
	known := make(map[string]struct{}, len(results))
	for _, r := range results {
		known[r.CombinationID] = struct{}{}
	}

	template := Outputs{Indicators: []Indicator{}, Texts: []string{}, Sounds: []string{}, Images: []string{}}
	if len(g.def.LogicFlow.Paths) > 0 {
		template = g.def.LogicFlow.Paths[0].Outputs.Clone()
	}

	for _, item := range g.GeneratedList() {
		if _, ok := known[item.ID]; ok {
			continue
		}
		results = append(results, InferredResult{
			CombinationID: item.ID,
			Matched:       false,
			Reasoning:     "模型未推理，使用默认",
			Outputs:       template.Clone(),
		})
	}
	return results
}

// InferOutputs runs the full inference round-trip: prompt, model call, reply
// parsing, and default backfill. Parse failures degrade to defaults so the
// pipeline always produces a complete result set.
func (g *Generator) InferOutputs(ctx context.Context, m model.Model, maxTokens int) ([]InferredResult, error) {
	if len(g.GeneratedList()) == 0 {
		return nil, nil
	}

	reply, err := m.Generate(ctx, model.Request{
		System:    inferenceSystemPrompt,
		Messages:  []model.Message{{Role: "user", Content: g.BuildInferencePrompt()}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("inference call: %w", err)
	}

	results, err := ParseInferenceReply(reply.Content)
	if err != nil {
		results = nil
	}
	return g.BackfillDefaults(results), nil
}
