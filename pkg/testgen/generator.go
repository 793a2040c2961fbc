package testgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Strategy names double as combination id prefixes (STRATEGY_N).
const (
	StrategyCombination = "combination_coverage"
	StrategyBoundary    = "boundary_value"
)

// strategyOrder fixes iteration order so ids and exports are deterministic.
var strategyOrder = []string{StrategyCombination, StrategyBoundary}

// ErrNotExtracted is returned when strategies run before coverage extraction.
var ErrNotExtracted = errors.New("testgen: covered combinations not extracted yet")

// SignalValue binds a signal name to one concrete value.
type SignalValue struct {
	SignalName string `json:"signalName"`
	Value      string `json:"value"`
}

// Preconditions is the system state of one combination.
type Preconditions struct {
	PowerMode string       `json:"powerMode,omitempty"`
	CANSignal *SignalValue `json:"canSignal,omitempty"`
}

// TriggerState is the firing condition of one combination.
type TriggerState struct {
	Logic      string        `json:"logic"`
	CANSignals []SignalValue `json:"canSignals"`
}

// Combination is one precondition x trigger pairing, covered or generated.
type Combination struct {
	Preconditions Preconditions `json:"preconditions"`
	Trigger       TriggerState  `json:"trigger"`
	Outputs       *Outputs      `json:"outputs,omitempty"`
	Source        string        `json:"source"`
}

// Key canonicalizes a combination for duplicate detection. Trigger signals
// are sorted so AND-groups compare independent of declaration order.
func (c Combination) Key() string {
	parts := make([]string, 0, len(c.Trigger.CANSignals))
	for _, sig := range c.Trigger.CANSignals {
		parts = append(parts, sig.SignalName+"="+sig.Value)
	}
	sort.Strings(parts)

	var b strings.Builder
	b.WriteString("pm=" + c.Preconditions.PowerMode)
	if c.Preconditions.CANSignal != nil {
		b.WriteString(";pre=" + c.Preconditions.CANSignal.SignalName + "=" + c.Preconditions.CANSignal.Value)
	}
	b.WriteString(";trig=" + strings.Join(parts, ","))
	return b.String()
}

// Display renders a combination the way coverage summaries show it.
func (c Combination) Display() string {
	var b strings.Builder
	if c.Preconditions.PowerMode != "" {
		b.WriteString("powerMode=" + c.Preconditions.PowerMode)
	}
	if c.Preconditions.CANSignal != nil {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Preconditions.CANSignal.SignalName + "=" + c.Preconditions.CANSignal.Value)
	}
	if b.Len() > 0 {
		b.WriteString(" -> ")
	}
	for i, sig := range c.Trigger.CANSignals {
		if i > 0 {
			b.WriteString(" " + strings.ToUpper(c.Trigger.Logic) + " ")
		}
		b.WriteString(sig.SignalName + "=" + sig.Value)
	}
	return b.String()
}

// IdentifiedCombination pairs a generated combination with its id.
type IdentifiedCombination struct {
	ID          string
	Strategy    string
	Combination Combination
}

// Generator derives uncovered test combinations from a function definition.
// Not safe for concurrent use; callers serialize access.
type Generator struct {
	def       *FunctionDefinition
	covered   []Combination
	generated map[string][]Combination
	extracted bool
}

// NewGenerator wraps a validated function definition.
func NewGenerator(def *FunctionDefinition) *Generator {
	return &Generator{
		def:       def,
		generated: make(map[string][]Combination),
	}
}

// Definition exposes the wrapped definition.
func (g *Generator) Definition() *FunctionDefinition { return g.def }

// Covered returns the combinations the existing paths already exercise.
func (g *Generator) Covered() []Combination { return g.covered }

// Generated returns generated combinations grouped by strategy.
func (g *Generator) Generated() map[string][]Combination { return g.generated }

// GeneratedList flattens generated combinations in stable order with ids.
func (g *Generator) GeneratedList() []IdentifiedCombination {
	var out []IdentifiedCombination
	for _, strategy := range strategyOrder {
		for i, combo := range g.generated[strategy] {
			out = append(out, IdentifiedCombination{
				ID:          strategy + "_" + strconv.Itoa(i+1),
				Strategy:    strategy,
				Combination: combo,
			})
		}
	}
	return out
}

// ExtractCovered enumerates every combination the definition's paths already
// test, expanding multi-value conditions. It returns the covered count.
func (g *Generator) ExtractCovered() int {
	g.covered = g.covered[:0]

	for _, path := range g.def.LogicFlow.Paths {
		powerModes := []string{""}
		var signalPre *Precondition
		for i, pc := range path.Conditions.Preconditions {
			switch pc.Type {
			case "powerMode":
				powerModes = []string(pc.Value)
			case "signal":
				if signalPre == nil {
					signalPre = &path.Conditions.Preconditions[i]
				}
			}
		}

		preVariants := []*SignalValue{nil}
		if signalPre != nil {
			preVariants = preVariants[:0]
			for _, v := range signalPre.Value {
				preVariants = append(preVariants, &SignalValue{SignalName: signalPre.SignalName, Value: v})
			}
		}

		logic := strings.ToUpper(strings.TrimSpace(path.Conditions.Trigger.Logic))
		triggerVariants := expandTrigger(logic, path.Conditions.Trigger.Signals)

		for _, pm := range powerModes {
			for _, pre := range preVariants {
				for _, trig := range triggerVariants {
					outputs := path.Outputs.Clone()
					g.covered = append(g.covered, Combination{
						Preconditions: Preconditions{PowerMode: pm, CANSignal: pre},
						Trigger:       TriggerState{Logic: logic, CANSignals: trig},
						Outputs:       &outputs,
						Source:        path.PathID,
					})
				}
			}
		}
	}

	g.extracted = true
	return len(g.covered)
}

// expandTrigger turns a trigger definition into concrete signal assignments.
// AND takes the cartesian product of each signal's allowed values; OR fires
// on any single signal value.
func expandTrigger(logic string, signals []TriggerSignal) [][]SignalValue {
	if logic == "OR" {
		var out [][]SignalValue
		for _, sig := range signals {
			for _, v := range sig.Value {
				out = append(out, []SignalValue{{SignalName: sig.SignalName, Value: v}})
			}
		}
		return out
	}

	out := [][]SignalValue{{}}
	for _, sig := range signals {
		next := make([][]SignalValue, 0, len(out)*len(sig.Value))
		for _, prefix := range out {
			for _, v := range sig.Value {
				row := make([]SignalValue, len(prefix), len(prefix)+1)
				copy(row, prefix)
				next = append(next, append(row, SignalValue{SignalName: sig.SignalName, Value: v}))
			}
		}
		out = next
	}
	return out
}

// ExecuteStrategies fills the generated map with uncovered combinations.
// Outputs stay nil until inference applies them. Returns the total count.
func (g *Generator) ExecuteStrategies() (int, error) {
	if !g.extracted {
		return 0, ErrNotExtracted
	}

	seen := make(map[string]struct{}, len(g.covered))
	for _, combo := range g.covered {
		seen[combo.Key()] = struct{}{}
	}

	g.generated = map[string][]Combination{
		StrategyCombination: g.combinationCoverage(seen),
		StrategyBoundary:    g.boundaryValues(seen),
	}

	total := 0
	for _, combos := range g.generated {
		total += len(combos)
	}
	return total, nil
}

// combinationCoverage sweeps every power mode against every defined value of
// the signals that paths actually trigger on.
func (g *Generator) combinationCoverage(seen map[string]struct{}) []Combination {
	triggered := make(map[string]bool)
	for _, path := range g.def.LogicFlow.Paths {
		for _, sig := range path.Conditions.Trigger.Signals {
			triggered[sig.SignalName] = true
		}
	}

	powerModes := g.def.PowerModes
	if len(powerModes) == 0 {
		powerModes = []string{""}
	}

	var out []Combination
	for _, pm := range powerModes {
		for _, sig := range g.def.Signals() {
			if !triggered[sig.SignalName] {
				continue
			}
			for _, dv := range sig.DefinedValues {
				combo := Combination{
					Preconditions: Preconditions{PowerMode: pm},
					Trigger: TriggerState{
						Logic:      "AND",
						CANSignals: []SignalValue{{SignalName: sig.SignalName, Value: dv.Value}},
					},
					Source: g.sourcePath(sig.SignalName),
				}
				key := combo.Key()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, combo)
			}
		}
	}
	return out
}

// boundaryValues pairs boundary power modes with the first and last defined
// value of every interface signal, catching signals no path triggers on.
func (g *Generator) boundaryValues(seen map[string]struct{}) []Combination {
	var out []Combination
	for _, pm := range boundaries(g.def.PowerModes) {
		for _, sig := range g.def.Signals() {
			values := make([]string, 0, len(sig.DefinedValues))
			for _, dv := range sig.DefinedValues {
				values = append(values, dv.Value)
			}
			for _, v := range boundaries(values) {
				combo := Combination{
					Preconditions: Preconditions{PowerMode: pm},
					Trigger: TriggerState{
						Logic:      "AND",
						CANSignals: []SignalValue{{SignalName: sig.SignalName, Value: v}},
					},
					Source: g.sourcePath(sig.SignalName),
				}
				key := combo.Key()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, combo)
			}
		}
	}
	return out
}

// boundaries returns the first and last element, deduplicated.
func boundaries(values []string) []string {
	switch len(values) {
	case 0:
		return []string{""}
	case 1:
		return values[:1]
	default:
		return []string{values[0], values[len(values)-1]}
	}
}

// sourcePath picks the path a generated combination derives from: the first
// path whose trigger references the signal, falling back to the first path.
func (g *Generator) sourcePath(signalName string) string {
	for _, path := range g.def.LogicFlow.Paths {
		for _, sig := range path.Conditions.Trigger.Signals {
			if sig.SignalName == signalName {
				return path.PathID
			}
		}
	}
	return g.def.LogicFlow.Paths[0].PathID
}

// ApplyInferred copies inferred outputs onto generated combinations by
// combination id (STRATEGY_N). Models echo the ids in either case, so the
// strategy segment is matched case-insensitively. Unknown ids are skipped,
// not errors.
func (g *Generator) ApplyInferred(results []InferredResult) int {
	applied := 0
	for _, res := range results {
		cid := strings.TrimSpace(res.CombinationID)
		cut := strings.LastIndex(cid, "_")
		if cut <= 0 || cut == len(cid)-1 {
			continue
		}
		strategy, idxStr := strings.ToLower(cid[:cut]), cid[cut+1:]
		combos, ok := g.generated[strategy]
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 1 || idx > len(combos) {
			continue
		}
		outputs := res.Outputs.Clone()
		combos[idx-1].Outputs = &outputs
		applied++
	}
	return applied
}

// TestCase is one exported case with a stable TC_00N id.
type TestCase struct {
	ID              string            `json:"id"`
	Strategy        string            `json:"strategy"`
	Preconditions   map[string]string `json:"preconditions"`
	Trigger         TestCaseTrigger   `json:"trigger"`
	ExpectedOutputs Outputs           `json:"expected_outputs"`
	Source          string            `json:"source"`
}

// TestCaseTrigger flattens trigger signals to name -> value.
type TestCaseTrigger struct {
	Logic   string            `json:"logic"`
	Signals map[string]string `json:"signals"`
}

// ExportDocument is the persisted JSON export shape.
type ExportDocument struct {
	Function       string     `json:"function"`
	TotalCases     int        `json:"total_cases"`
	WithOutputs    int        `json:"with_outputs"`
	WithoutOutputs int        `json:"without_outputs"`
	TestCases      []TestCase `json:"test_cases"`
}

// ExportCases materializes generated combinations as numbered test cases.
func (g *Generator) ExportCases() ExportDocument {
	var cases []TestCase
	caseID := 1
	for _, strategy := range strategyOrder {
		for _, combo := range g.generated[strategy] {
			pre := make(map[string]string)
			if combo.Preconditions.PowerMode != "" {
				pre["powerMode"] = combo.Preconditions.PowerMode
			}
			if combo.Preconditions.CANSignal != nil {
				pre[combo.Preconditions.CANSignal.SignalName] = combo.Preconditions.CANSignal.Value
			}

			signals := make(map[string]string, len(combo.Trigger.CANSignals))
			for _, sig := range combo.Trigger.CANSignals {
				signals[sig.SignalName] = sig.Value
			}

			outputs := Outputs{Indicators: []Indicator{}, Texts: []string{}, Sounds: []string{}, Images: []string{}}
			if combo.Outputs != nil {
				outputs = combo.Outputs.Clone()
			}

			cases = append(cases, TestCase{
				ID:              fmt.Sprintf("TC_%03d", caseID),
				Strategy:        strategy,
				Preconditions:   pre,
				Trigger:         TestCaseTrigger{Logic: combo.Trigger.Logic, Signals: signals},
				ExpectedOutputs: outputs,
				Source:          combo.Source,
			})
			caseID++
		}
	}

	withOutputs := 0
	for _, tc := range cases {
		if !tc.ExpectedOutputs.Empty() {
			withOutputs++
		}
	}

	return ExportDocument{
		Function:       g.def.FunctionName,
		TotalCases:     len(cases),
		WithOutputs:    withOutputs,
		WithoutOutputs: len(cases) - withOutputs,
		TestCases:      cases,
	}
}

// ExportJSON renders the export document as indented JSON.
func (g *Generator) ExportJSON() ([]byte, error) {
	doc := g.ExportCases()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode test cases: %w", err)
	}
	return data, nil
}

// ExportMarkdown renders a human-readable case list.
func (g *Generator) ExportMarkdown() []byte {
	doc := g.ExportCases()
	var b strings.Builder
	fmt.Fprintf(&b, "# %s 测试用例\n\n", doc.Function)
	fmt.Fprintf(&b, "**总计**: %d 个用例\n\n", doc.TotalCases)
	fmt.Fprintf(&b, "**有预期**: %d 个\n", doc.WithOutputs)

	for _, tc := range doc.TestCases {
		fmt.Fprintf(&b, "\n## %s - %s\n\n", tc.ID, tc.Strategy)
		fmt.Fprintf(&b, "**前置**: %s\n\n", formatPairs(tc.Preconditions))
		fmt.Fprintf(&b, "**触发**: %s\n\n", formatPairs(tc.Trigger.Signals))
		b.WriteString("**预期**:\n")
		if len(tc.ExpectedOutputs.Indicators) > 0 {
			for _, ind := range tc.ExpectedOutputs.Indicators {
				fmt.Fprintf(&b, "  - %s: %s\n", ind.Name, ind.Action)
			}
		} else {
			b.WriteString("  - 无\n")
		}
	}
	return []byte(b.String())
}

func formatPairs(pairs map[string]string) string {
	if len(pairs) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+pairs[k])
	}
	return strings.Join(parts, ", ")
}

// ResultsSummary captures generation statistics for persistence.
type ResultsSummary struct {
	FunctionName          string         `json:"function_name"`
	CoveredCombinations   int            `json:"covered_combinations"`
	GeneratedCombinations map[string]int `json:"generated_combinations"`
	TotalGenerated        int            `json:"total_generated"`
}

// Results summarises the run.
func (g *Generator) Results() ResultsSummary {
	summary := ResultsSummary{
		FunctionName:          g.def.FunctionName,
		CoveredCombinations:   len(g.covered),
		GeneratedCombinations: make(map[string]int, len(g.generated)),
	}
	for _, strategy := range strategyOrder {
		count := len(g.generated[strategy])
		summary.GeneratedCombinations[strategy] = count
		summary.TotalGenerated += count
	}
	return summary
}
