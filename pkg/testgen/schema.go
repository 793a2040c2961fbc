// Package testgen generates automotive function test cases from a structured
// function definition: signal interfaces, power modes, and logic-flow paths.
package testgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ValueList accepts either a bare string or an array of strings, which is how
// function definitions express single- and multi-value conditions.
type ValueList []string

func (v *ValueList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = ValueList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("value must be string or string array: %w", err)
	}
	*v = ValueList(many)
	return nil
}

func (v ValueList) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

// DefinedValue pairs a raw signal value with its human description, e.g.
// 0x1 / "故障".
type DefinedValue struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Signal describes one CAN or hardwire signal and its value domain.
type Signal struct {
	SignalName    string         `json:"signalName"`
	DefinedValues []DefinedValue `json:"definedValues"`
}

// SignalInterface groups the function's input signals by transport.
type SignalInterface struct {
	CAN      []Signal `json:"CAN"`
	HARDWIRE []Signal `json:"HARDWIRE"`
}

// Precondition restricts the system state before a trigger fires. Type is
// either "powerMode" or "signal".
type Precondition struct {
	Type       string    `json:"type"`
	SignalName string    `json:"signalName,omitempty"`
	Value      ValueList `json:"value"`
}

// TriggerSignal is one signal condition inside a trigger.
type TriggerSignal struct {
	SignalName string    `json:"signalName"`
	Value      ValueList `json:"value"`
}

// Trigger combines signal conditions with AND/OR logic.
type Trigger struct {
	Logic   string          `json:"logic"`
	Signals []TriggerSignal `json:"signals"`
}

// Conditions holds everything that must be true for a path to fire.
type Conditions struct {
	Preconditions []Precondition `json:"preconditions"`
	Trigger       Trigger        `json:"trigger"`
}

// Indicator is a telltale lamp with its expected action (点亮, 熄灭, 闪烁).
type Indicator struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

// Outputs is the expected HMI reaction of a path.
type Outputs struct {
	Indicators []Indicator `json:"indicators"`
	Texts      []string    `json:"texts"`
	Sounds     []string    `json:"sounds"`
	Images     []string    `json:"images"`
}

// Clone deep-copies outputs so strategy combinations can diverge later.
func (o Outputs) Clone() Outputs {
	dup := Outputs{
		Indicators: make([]Indicator, len(o.Indicators)),
		Texts:      append([]string{}, o.Texts...),
		Sounds:     append([]string{}, o.Sounds...),
		Images:     append([]string{}, o.Images...),
	}
	copy(dup.Indicators, o.Indicators)
	return dup
}

// Empty reports whether no output channel carries anything.
func (o Outputs) Empty() bool {
	return len(o.Indicators) == 0 && len(o.Texts) == 0 && len(o.Sounds) == 0 && len(o.Images) == 0
}

// Path is one logic-flow branch of the function under test.
type Path struct {
	PathID          string     `json:"pathId"`
	PathDescription string     `json:"pathDescription"`
	Conditions      Conditions `json:"conditions"`
	Outputs         Outputs    `json:"outputs"`
}

// LogicFlow wraps all paths.
type LogicFlow struct {
	Paths []Path `json:"paths"`
}

// FunctionDefinition is the root document driving test generation.
type FunctionDefinition struct {
	FunctionName    string          `json:"functionName"`
	PowerModes      []string        `json:"powerModes"`
	SignalInterface SignalInterface `json:"signalInterface"`
	LogicFlow       LogicFlow       `json:"logicFlow"`
}

// ParseDefinition decodes and validates a function definition document.
func ParseDefinition(data []byte) (*FunctionDefinition, error) {
	var def FunctionDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode function definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate enforces the structural invariants generation depends on.
func (d *FunctionDefinition) Validate() error {
	if strings.TrimSpace(d.FunctionName) == "" {
		return errors.New("functionName is required")
	}
	if len(d.LogicFlow.Paths) == 0 {
		return errors.New("logicFlow.paths cannot be empty")
	}

	seen := make(map[string]struct{}, len(d.LogicFlow.Paths))
	for i, path := range d.LogicFlow.Paths {
		id := strings.TrimSpace(path.PathID)
		if id == "" {
			return fmt.Errorf("paths[%d].pathId is required", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate pathId %s", id)
		}
		seen[id] = struct{}{}

		for j, pc := range path.Conditions.Preconditions {
			switch pc.Type {
			case "powerMode":
			case "signal":
				if strings.TrimSpace(pc.SignalName) == "" {
					return fmt.Errorf("paths[%d].preconditions[%d] signal requires signalName", i, j)
				}
			default:
				return fmt.Errorf("paths[%d].preconditions[%d] has unknown type %q", i, j, pc.Type)
			}
			if len(pc.Value) == 0 {
				return fmt.Errorf("paths[%d].preconditions[%d] requires a value", i, j)
			}
		}

		logic := strings.ToUpper(strings.TrimSpace(path.Conditions.Trigger.Logic))
		if logic != "AND" && logic != "OR" {
			return fmt.Errorf("paths[%d].trigger.logic must be AND or OR", i)
		}
		if len(path.Conditions.Trigger.Signals) == 0 {
			return fmt.Errorf("paths[%d].trigger.signals cannot be empty", i)
		}
		for j, sig := range path.Conditions.Trigger.Signals {
			if strings.TrimSpace(sig.SignalName) == "" {
				return fmt.Errorf("paths[%d].trigger.signals[%d] requires signalName", i, j)
			}
			if len(sig.Value) == 0 {
				return fmt.Errorf("paths[%d].trigger.signals[%d] requires a value", i, j)
			}
		}
	}
	return nil
}

// Signals flattens CAN and hardwire signals in declaration order.
func (d *FunctionDefinition) Signals() []Signal {
	out := make([]Signal, 0, len(d.SignalInterface.CAN)+len(d.SignalInterface.HARDWIRE))
	out = append(out, d.SignalInterface.CAN...)
	out = append(out, d.SignalInterface.HARDWIRE...)
	return out
}

// SignalDescriptions maps signal name -> value -> description, with the
// synthetic powerMode signal included.
func (d *FunctionDefinition) SignalDescriptions() map[string]map[string]string {
	defs := make(map[string]map[string]string)
	if len(d.PowerModes) > 0 {
		pm := make(map[string]string, len(d.PowerModes))
		for _, mode := range d.PowerModes {
			pm[mode] = "电源" + mode + "状态"
		}
		defs["powerMode"] = pm
	}
	for _, sig := range d.Signals() {
		values := make(map[string]string, len(sig.DefinedValues))
		for _, dv := range sig.DefinedValues {
			values[dv.Value] = dv.Description
		}
		defs[sig.SignalName] = values
	}
	return defs
}
