package models

// ToolCallable executes a tool call. Args come straight from the model;
// output is the JSON string fed back as the tool result.
type ToolCallable func(args map[string]interface{}) (string, error)

type FunctionDeclaration struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  Parameters   `json:"parameters"`
	Callable    ToolCallable `json:"-"`
}

// Parameters defines the JSON Schema for function parameters
type Parameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}
