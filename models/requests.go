package models

// Model_Request is the provider-agnostic input for one invocation. Messages
// is the working copy for the current turn: caller history plus any derived
// tool-call/tool-result turns appended by the loop.
type Model_Request struct {
	Model         string         `json:"model,omitempty"`
	System_Prompt string         `json:"system_prompt,omitempty"`
	Messages      []Message      `json:"messages"`
	Context       *Context_Block `json:"context,omitempty"`
	// Enable_Search asks the adapter to declare its provider-side web search
	// / grounding capability for this call.
	Enable_Search bool `json:"enable_search,omitempty"`
}

// Tool_Call is a provider-issued function call. It exists only for the
// duration of one tool-loop iteration and is never persisted.
type Tool_Call struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type Tool_Result struct {
	Tool_ID     string `json:"tool_id"` // matches the originating Tool_Call.ID
	Tool_Name   string `json:"tool_name"`
	Tool_Output string `json:"tool_output"`
}

// Model_Response is the normalized result of one provider invocation.
type Model_Response struct {
	Text       string      `json:"text,omitempty"`
	Tool_Calls []Tool_Call `json:"tool_calls,omitempty"`
	Sources    []Source    `json:"sources,omitempty"`
	Usage      Usage       `json:"usage"`
}

// Model is the capability interface both vendor adapters implement. The
// orchestration layers depend only on this, never on vendor specifics: each
// adapter builds its own wire payload, invokes the vendor, and extracts
// text, sources and tool calls back into a Model_Response.
type Model interface {
	Model_Request(request Model_Request, tools []FunctionDeclaration) (Model_Response, error)
}
