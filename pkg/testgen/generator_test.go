package testgen

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const absDefinition = `{
  "functionName": "ABS故障指示",
  "powerModes": ["ON", "ACC"],
  "signalInterface": {
    "CAN": [
      {
        "signalName": "EspAbsFailr",
        "definedValues": [
          {"value": "0x0", "description": "无故障"},
          {"value": "0x1", "description": "故障"},
          {"value": "0x2", "description": "严重故障"}
        ]
      }
    ],
    "HARDWIRE": [
      {
        "signalName": "AbsHardLine",
        "definedValues": [
          {"value": "LOW", "description": "正常"},
          {"value": "HIGH", "description": "故障"}
        ]
      }
    ]
  },
  "logicFlow": {
    "paths": [
      {
        "pathId": "P1",
        "pathDescription": "ABS故障时点亮故障指示灯",
        "conditions": {
          "preconditions": [
            {"type": "powerMode", "value": ["ON"]}
          ],
          "trigger": {
            "logic": "AND",
            "signals": [
              {"signalName": "EspAbsFailr", "value": ["0x1", "0x2"]}
            ]
          }
        },
        "outputs": {
          "indicators": [{"name": "ABS故障指示灯", "action": "点亮"}],
          "texts": ["制动防抱死系统故障"],
          "sounds": [],
          "images": []
        }
      }
    ]
  }
}`

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	def, err := ParseDefinition([]byte(absDefinition))
	if err != nil {
		t.Fatalf("parse definition: %v", err)
	}
	return NewGenerator(def)
}

func TestParseDefinitionValidates(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		wantErr string
	}{
		{
			"missing function name",
			func(m map[string]any) { m["functionName"] = " " },
			"functionName",
		},
		{
			"no paths",
			func(m map[string]any) { m["logicFlow"] = map[string]any{"paths": []any{}} },
			"paths cannot be empty",
		},
		{
			"duplicate path ids",
			func(m map[string]any) {
				paths := m["logicFlow"].(map[string]any)["paths"].([]any)
				paths = append(paths, paths[0])
				m["logicFlow"].(map[string]any)["paths"] = paths
			},
			"duplicate pathId",
		},
		{
			"bad trigger logic",
			func(m map[string]any) {
				path := m["logicFlow"].(map[string]any)["paths"].([]any)[0].(map[string]any)
				path["conditions"].(map[string]any)["trigger"].(map[string]any)["logic"] = "XOR"
			},
			"must be AND or OR",
		},
		{
			"unknown precondition type",
			func(m map[string]any) {
				path := m["logicFlow"].(map[string]any)["paths"].([]any)[0].(map[string]any)
				pcs := path["conditions"].(map[string]any)["preconditions"].([]any)
				pcs[0].(map[string]any)["type"] = "weather"
			},
			"unknown type",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var doc map[string]any
			if err := json.Unmarshal([]byte(absDefinition), &doc); err != nil {
				t.Fatalf("decode fixture: %v", err)
			}
			tc.mutate(doc)
			data, err := json.Marshal(doc)
			if err != nil {
				t.Fatalf("re-encode: %v", err)
			}
			_, err = ParseDefinition(data)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestValueListAcceptsStringAndArray(t *testing.T) {
	var pc Precondition
	if err := json.Unmarshal([]byte(`{"type":"powerMode","value":"ON"}`), &pc); err != nil {
		t.Fatalf("single value: %v", err)
	}
	if len(pc.Value) != 1 || pc.Value[0] != "ON" {
		t.Fatalf("value = %v", pc.Value)
	}
	if err := json.Unmarshal([]byte(`{"type":"powerMode","value":["ON","ACC"]}`), &pc); err != nil {
		t.Fatalf("array value: %v", err)
	}
	if len(pc.Value) != 2 {
		t.Fatalf("value = %v", pc.Value)
	}
}

func TestExtractCoveredExpandsValues(t *testing.T) {
	gen := newTestGenerator(t)
	count := gen.ExtractCovered()
	// P1: powerMode ON x trigger values {0x1, 0x2}.
	if count != 2 {
		t.Fatalf("covered = %d, want 2", count)
	}
	for _, combo := range gen.Covered() {
		if combo.Source != "P1" || combo.Preconditions.PowerMode != "ON" {
			t.Fatalf("combo = %+v", combo)
		}
		if combo.Outputs == nil || len(combo.Outputs.Indicators) != 1 {
			t.Fatalf("covered combination must carry path outputs: %+v", combo)
		}
	}
}

func TestExecuteStrategiesRequiresExtraction(t *testing.T) {
	gen := newTestGenerator(t)
	if _, err := gen.ExecuteStrategies(); !errors.Is(err, ErrNotExtracted) {
		t.Fatalf("err = %v", err)
	}
}

func TestExecuteStrategiesSkipsCovered(t *testing.T) {
	gen := newTestGenerator(t)
	gen.ExtractCovered()
	total, err := gen.ExecuteStrategies()
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	generated := gen.Generated()
	// Triggered signal EspAbsFailr has 3 values x 2 power modes = 6, minus
	// the 2 covered (ON x 0x1, ON x 0x2).
	if got := len(generated[StrategyCombination]); got != 4 {
		t.Fatalf("combination coverage = %d, want 4", got)
	}
	// Boundary: untriggered AbsHardLine boundaries x boundary power modes.
	if got := len(generated[StrategyBoundary]); got != 4 {
		t.Fatalf("boundary = %d, want 4", got)
	}
	if total != 8 {
		t.Fatalf("total = %d, want 8", total)
	}

	seen := make(map[string]struct{})
	for _, combo := range gen.Covered() {
		seen[combo.Key()] = struct{}{}
	}
	for _, item := range gen.GeneratedList() {
		if item.Combination.Outputs != nil {
			t.Fatalf("generated combination %s must start without outputs", item.ID)
		}
		key := item.Combination.Key()
		if _, dup := seen[key]; dup {
			t.Fatalf("combination %s duplicates %s", item.ID, key)
		}
		seen[key] = struct{}{}
	}
}

func TestGeneratedListIDsAreStable(t *testing.T) {
	gen := newTestGenerator(t)
	gen.ExtractCovered()
	if _, err := gen.ExecuteStrategies(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	list := gen.GeneratedList()
	if list[0].ID != StrategyCombination+"_1" {
		t.Fatalf("first id = %s", list[0].ID)
	}
	for i := 1; i < len(list); i++ {
		if list[i].ID == list[i-1].ID {
			t.Fatalf("duplicate id %s", list[i].ID)
		}
	}
}

func TestApplyInferredMatchesByID(t *testing.T) {
	gen := newTestGenerator(t)
	gen.ExtractCovered()
	if _, err := gen.ExecuteStrategies(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	applied := gen.ApplyInferred([]InferredResult{
		{
			CombinationID: StrategyCombination + "_1",
			Matched:       false,
			Outputs:       Outputs{Indicators: []Indicator{{Name: "ABS故障指示灯", Action: "熄灭"}}},
		},
		{CombinationID: "unknown_strategy_1"},
		{CombinationID: StrategyCombination + "_999"},
		{CombinationID: "noindex"},
	})
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}

	first := gen.Generated()[StrategyCombination][0]
	if first.Outputs == nil || first.Outputs.Indicators[0].Action != "熄灭" {
		t.Fatalf("outputs not applied: %+v", first.Outputs)
	}
}

func TestApplyInferredAcceptsUppercaseIDs(t *testing.T) {
	gen := newTestGenerator(t)
	gen.ExtractCovered()
	if _, err := gen.ExecuteStrategies(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	// ids echoed back the way the system prompt spells them
	applied := gen.ApplyInferred([]InferredResult{{
		CombinationID: "COMBINATION_COVERAGE_1",
		Matched:       true,
		Outputs:       Outputs{Indicators: []Indicator{{Name: "ABS故障指示灯", Action: "点亮"}}},
	}})
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	first := gen.Generated()[StrategyCombination][0]
	if first.Outputs == nil || first.Outputs.Indicators[0].Action != "点亮" {
		t.Fatalf("outputs not applied: %+v", first.Outputs)
	}
}

func TestExportCasesNumbering(t *testing.T) {
	gen := newTestGenerator(t)
	gen.ExtractCovered()
	if _, err := gen.ExecuteStrategies(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	gen.ApplyInferred([]InferredResult{{
		CombinationID: StrategyCombination + "_1",
		Outputs:       Outputs{Indicators: []Indicator{{Name: "ABS故障指示灯", Action: "点亮"}}},
	}})

	doc := gen.ExportCases()
	if doc.Function != "ABS故障指示" || doc.TotalCases != 8 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.TestCases[0].ID != "TC_001" || doc.TestCases[7].ID != "TC_008" {
		t.Fatalf("ids = %s..%s", doc.TestCases[0].ID, doc.TestCases[7].ID)
	}
	if doc.WithOutputs != 1 || doc.WithoutOutputs != 7 {
		t.Fatalf("with=%d without=%d", doc.WithOutputs, doc.WithoutOutputs)
	}

	data, err := gen.ExportJSON()
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	var round ExportDocument
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("re-decode export: %v", err)
	}
	if round.TotalCases != doc.TotalCases {
		t.Fatalf("round trip total = %d", round.TotalCases)
	}

	md := string(gen.ExportMarkdown())
	if !strings.Contains(md, "# ABS故障指示 测试用例") || !strings.Contains(md, "TC_001") {
		t.Fatalf("markdown = %q", md[:120])
	}
}

func TestResultsSummaryCounts(t *testing.T) {
	gen := newTestGenerator(t)
	gen.ExtractCovered()
	if _, err := gen.ExecuteStrategies(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	summary := gen.Results()
	if summary.FunctionName != "ABS故障指示" || summary.CoveredCombinations != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.TotalGenerated != summary.GeneratedCombinations[StrategyCombination]+summary.GeneratedCombinations[StrategyBoundary] {
		t.Fatalf("totals disagree: %+v", summary)
	}
}

func TestExpandTriggerOR(t *testing.T) {
	variants := expandTrigger("OR", []TriggerSignal{
		{SignalName: "A", Value: ValueList{"1", "2"}},
		{SignalName: "B", Value: ValueList{"x"}},
	})
	if len(variants) != 3 {
		t.Fatalf("variants = %v", variants)
	}
	for _, v := range variants {
		if len(v) != 1 {
			t.Fatalf("OR variant must bind one signal: %v", v)
		}
	}
}

func TestExpandTriggerANDCartesian(t *testing.T) {
	variants := expandTrigger("AND", []TriggerSignal{
		{SignalName: "A", Value: ValueList{"1", "2"}},
		{SignalName: "B", Value: ValueList{"x", "y"}},
	})
	if len(variants) != 4 {
		t.Fatalf("variants = %v", variants)
	}
	for _, v := range variants {
		if len(v) != 2 {
			t.Fatalf("AND variant must bind both signals: %v", v)
		}
	}
}
