package models

// Source is a single citation. Within one response sources are unique by URL.
// Image_Fallback is always non-empty once enrichment completes: either a
// cached copy, a fetched og-image, or a deterministically seeded placeholder.
type Source struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	Description    string `json:"description,omitempty"`
	Image          string `json:"image,omitempty"`
	Image_Cached   string `json:"image_cached,omitempty"`
	Image_Fallback string `json:"image_fallback,omitempty"`
}

// Plan_Item is one visual entry of a grounded plan. Created by the planner
// (or synthesized from a Source when the model returns no items) and enriched
// in place by image attachment.
type Plan_Item struct {
	Title           string `json:"title"`
	Summary         string `json:"summary"`
	Source_Title    string `json:"source_title,omitempty"`
	Source_URL      string `json:"source_url,omitempty"`
	Image           string `json:"image,omitempty"`
	Image_Fallback  string `json:"image_fallback,omitempty"`
	Generated_Image string `json:"generated_image,omitempty"`
}

// Image_Request is a planner hint for image generation.
type Image_Request struct {
	Prompt    string `json:"prompt"`
	For_Title string `json:"for_title,omitempty"`
}

// Grounded_Plan is the structured output of the grounded planner: a summary
// and an item list, not final UI code.
type Grounded_Plan struct {
	Summary        string          `json:"summary,omitempty"`
	Items          []Plan_Item     `json:"items,omitempty"`
	Image_Requests []Image_Request `json:"image_requests,omitempty"`
}

// Generated_Image references a synthesized image persisted by the media
// collaborator. After creation it is referenced by URL only.
type Generated_Image struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Sandbox_Code is the success contract the whole pipeline exists to produce:
// a primary component file plus its stylesheet.
type Sandbox_Code struct {
	AppJS     string `json:"App.js"`
	StylesCSS string `json:"styles.css"`
}

// Parsed_Result is the tagged variant extracted from raw model text.
// Exactly one variant applies: "sandbox" carries Code, "message" carries
// Content, "grounded_plan" carries Plan.
type Parsed_Result struct {
	Type    string         `json:"type"`
	Code    *Sandbox_Code  `json:"code,omitempty"`
	Content string         `json:"content,omitempty"`
	Plan    *Grounded_Plan `json:"plan,omitempty"`
}

const (
	ResultTypeSandbox      = "sandbox"
	ResultTypeMessage      = "message"
	ResultTypeGroundedPlan = "grounded_plan"
)

// Usage is token accounting summed across every provider invocation of a turn.
type Usage struct {
	Prompt_Tokens     int `json:"prompt_tokens"`
	Completion_Tokens int `json:"completion_tokens"`
	Total_Tokens      int `json:"total_tokens"`
}

func (u *Usage) Add(other Usage) {
	u.Prompt_Tokens += other.Prompt_Tokens
	u.Completion_Tokens += other.Completion_Tokens
	u.Total_Tokens += other.Total_Tokens
}

// Context_Block bundles everything the main generation call may reference.
// Adapters serialize it as an authoritative JSON block appended as the final
// turn, with an instruction not to invent URLs beyond it.
type Context_Block struct {
	Plan             *Grounded_Plan    `json:"plan,omitempty"`
	Sources          []Source          `json:"sources,omitempty"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
	Generated_Images []Generated_Image `json:"generated_images,omitempty"`
}
