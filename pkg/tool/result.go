package tool

import "fmt"

// ToolResult captures the outcome of a tool invocation. A failed invocation
// that the model should see (and recover from) sets Success=false and Error;
// only infrastructure faults surface as Go errors from Execute.
type ToolResult struct {
	Success bool
	Output  string
	Data    interface{}
	Error   error
}

// Text builds a successful result carrying plain output.
func Text(output string) *ToolResult {
	return &ToolResult{Success: true, Output: output}
}

// Failf builds a failed result the model can read and react to.
func Failf(format string, args ...interface{}) *ToolResult {
	err := fmt.Errorf(format, args...)
	return &ToolResult{Success: false, Output: err.Error(), Error: err}
}
