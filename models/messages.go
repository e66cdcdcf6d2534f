package models

// Message is one turn of the caller-owned conversation. The core never
// mutates caller history; derived turns (tool calls, tool results) are only
// appended to a local working copy.
type Message struct {
	Role        string       `json:"role"` // "user" or "assistant"
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Tool_Calls and Tool_Results are set only on derived turns created by
	// the tool-call loop, never by the caller.
	Tool_Calls   []Tool_Call   `json:"tool_calls,omitempty"`
	Tool_Results []Tool_Result `json:"tool_results,omitempty"`
}

// Attachment is created by the upload collaborator before the core runs.
// Provider-specific identifiers are already resolved; the core consumes it
// read-only and never performs uploads itself.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Kind     string `json:"kind"` // "image", "pdf", "video", "audio", "text", "other"

	PublicURL string `json:"publicUrl,omitempty"`

	// Provider names the vendor the file reference below belongs to
	// ("openai" or "gemini"). Adapters drop references for the other vendor.
	Provider        string `json:"provider,omitempty"`
	ProviderFileID  string `json:"providerFileId,omitempty"`
	ProviderFileURI string `json:"providerFileUri,omitempty"`

	AnalysisAvailable bool `json:"analysisAvailable,omitempty"`
}

const (
	AttachmentKindImage = "image"
	AttachmentKindPDF   = "pdf"
	AttachmentKindVideo = "video"
	AttachmentKindAudio = "audio"
	AttachmentKindText  = "text"
	AttachmentKindOther = "other"
)
