// Package toolkit assembles the tools offered to the model on each turn.
//
// Tools come from two places: a remote MCP tool server discovered over SSE
// at turn start, and local tools defined in-process. Both land in a
// Catalog, which owns the remote connection for the duration of the turn.
package toolkit

// ToolError is a structured error format for model consumption. Tools
// return it so the model can read the failure and self-correct instead of
// receiving an opaque string.
type ToolError struct {
	ErrorType string `json:"error_type"` // e.g. "UpstreamUnavailable", "InvalidArguments"
	Message   string `json:"message"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return "<nil ToolError>"
	}
	switch {
	case e.ErrorType == "" && e.Message == "":
		return "<empty ToolError>"
	case e.ErrorType == "":
		return e.Message
	case e.Message == "":
		return e.ErrorType
	}
	return e.ErrorType + ": " + e.Message
}
