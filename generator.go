package appgen

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Desarso/appgen/images"
	"github.com/Desarso/appgen/media"
	"github.com/Desarso/appgen/models"
	"github.com/Desarso/appgen/models/gemini"
	"github.com/Desarso/appgen/models/openai"
	"github.com/Desarso/appgen/parser"
	"github.com/Desarso/appgen/planner"
	"github.com/Desarso/appgen/sources"
	"github.com/Desarso/appgen/stores"
	"github.com/Desarso/appgen/tools"
)

// maxToolIterations bounds the tool-call loop: at most this many provider
// invocations per turn, regardless of outstanding calls.
const maxToolIterations = 4

// maxRepairRetries bounds the repair loop; exhausting it is fatal.
const maxRepairRetries = 3

// codeSystemPrompt is the instruction set for the main generation call.
const codeSystemPrompt = `You are an expert React developer generating complete, runnable single-file applications.
Respond with a single JSON object and nothing else:
{"type": "sandbox", "code": {"App.js": "<complete component source>", "styles.css": "<stylesheet>"}}
App.js must define and export default a component named App. Use plain React (no extra npm packages).
If the request genuinely cannot be satisfied with an app, respond with {"type": "message", "content": "<explanation>"} instead.
When a context block of sources is provided, build the UI around those sources and cite their real URLs; never invent URLs.`

// repairInstruction asks the model to fix a previously rejected output.
const repairInstruction = "The previous response could not be used: %s\nRespond again with only the JSON sandbox object, no prose and no markdown fences."

// Generate_Request is the inbound contract for one generation turn.
type Generate_Request struct {
	Messages        []models.Message `json:"messages"`
	Provider        string           `json:"provider"`
	Model           string           `json:"model,omitempty"`
	EnableWebSearch bool             `json:"enable_web_search,omitempty"`
}

// Repair_Request re-runs generation after a downstream failure (for example
// a sandbox runtime error), carrying the error text back to the model.
type Repair_Request struct {
	Messages []models.Message `json:"messages"`
	Error    string           `json:"error"`
	Provider string           `json:"provider"`
	Model    string           `json:"model,omitempty"`
}

// Generate_Result is the outbound contract shared by Generate and Repair.
type Generate_Result struct {
	Content string                 `json:"content"`
	Parsed  []models.Parsed_Result `json:"parsed"`
	Sources []models.Source        `json:"sources"`
	Usage   models.Usage           `json:"usage"`
}

// Generator wires the pipeline's collaborators together. Construct with
// NewGenerator; the zero value is not usable.
type Generator struct {
	Config *Config
	Media  *media.Store
	Traces stores.Trace_Store

	// ModelFactory overrides adapter construction (used by tests).
	ModelFactory func(provider, modelName string) (models.Model, error)

	logger *log.Logger
}

func NewGenerator(cfg *Config, mediaStore *media.Store, traces stores.Trace_Store) *Generator {
	if mediaStore != nil {
		images.SetGenerateConfig(&images.GenerateConfig{Media: mediaStore})
	}
	return &Generator{
		Config: cfg,
		Media:  mediaStore,
		Traces: traces,
		logger: log.New(os.Stdout, "[generator] ", log.LstdFlags),
	}
}

// Generate runs one full turn: intent classification, optional grounded
// planning and source enrichment, the tool-call loop, and parsing.
func (g *Generator) Generate(request Generate_Request) (*Generate_Result, error) {
	started := time.Now()
	provider, model, modelName, err := g.resolveModel(request.Provider, request.Model)
	if err != nil {
		return nil, err
	}

	intent := images.Classify_Intent(lastUserText(request.Messages))

	var totalUsage models.Usage
	var context *models.Context_Block
	var planSources []models.Source

	if request.EnableWebSearch {
		context, planSources, totalUsage, err = g.buildContext(model, request.Messages, intent, provider)
		if err != nil {
			g.logger.Printf("grounding failed, continuing without context: %v", err)
		}
	}

	toolset := tools.Default_Tools(intent, provider)

	// Caller-owned history stays untouched; derived turns go on a working copy.
	working := models.Model_Request{
		Model:         modelName,
		System_Prompt: codeSystemPrompt,
		Messages:      append([]models.Message{}, request.Messages...),
		Context:       context,
	}

	response, loopUsage, iterations, err := g.runToolLoop(model, working, toolset)
	if err != nil {
		g.recordTrace(request, provider, modelName, "", 0, totalUsage, started, err)
		return nil, err
	}
	totalUsage.Add(loopUsage)

	parsed := parser.Parse_Response(response.Text)
	allSources := sources.Dedupe_Sources(append(planSources, response.Sources...))

	result := &Generate_Result{
		Content: response.Text,
		Parsed:  parsed,
		Sources: allSources,
		Usage:   totalUsage,
	}
	g.recordTrace(request, provider, modelName, parsed[0].Type, iterations, totalUsage, started, nil)
	return result, nil
}

// Repair re-prompts until the output contains a sandbox result, up to
// maxRepairRetries attempts. Exhaustion is fatal: a missing sandbox result
// has no safe default.
func (g *Generator) Repair(request Repair_Request) (*Generate_Result, error) {
	working := append([]models.Message{}, request.Messages...)
	working = append(working, models.Message{
		Role:    "user",
		Content: fmt.Sprintf(repairInstruction, request.Error),
	})

	var totalUsage models.Usage
	for attempt := 1; attempt <= maxRepairRetries; attempt++ {
		result, err := g.Generate(Generate_Request{
			Messages: working,
			Provider: request.Provider,
			Model:    request.Model,
		})
		if err != nil {
			return nil, err
		}
		totalUsage.Add(result.Usage)

		if parser.Has_Sandbox(result.Parsed) {
			result.Usage = totalUsage
			return result, nil
		}

		g.logger.Printf("repair attempt %d/%d produced no sandbox result", attempt, maxRepairRetries)
		working = append(working,
			models.Message{Role: "assistant", Content: result.Content},
			models.Message{Role: "user", Content: fmt.Sprintf(repairInstruction, "the response did not contain a sandbox object")},
		)
	}

	return nil, fmt.Errorf("repair failed: no sandbox result after %d attempts", maxRepairRetries)
}

// buildContext runs the grounded planner and source pipeline, producing the
// authoritative context block for the main call.
func (g *Generator) buildContext(model models.Model, messages []models.Message, intent images.Intent, provider string) (*models.Context_Block, []models.Source, models.Usage, error) {
	planResult, err := planner.Build_Grounded_Plan(model, messages, []models.FunctionDeclaration{tools.URLMetadataTool()})
	if err != nil {
		return nil, nil, models.Usage{}, err
	}

	var cacher sources.ImageCacher
	if g.Media != nil {
		cacher = g.Media
	}
	enriched := sources.Enrich_Sources(planResult.Sources, sources.Enrich_Options{Cacher: cacher})
	planner.Attach_Sources(planResult.Plan, enriched)

	var generated []models.Generated_Image
	if intent.Mode != images.ModeNone {
		force := intent.Mode == images.ModeExplicit
		count := images.Ensure_Plan_Images(planResult.Plan, provider, intent.Max, force)
		g.logger.Printf("generated %d plan images (mode=%s)", count, intent.Mode)
		for _, item := range planResult.Plan.Items {
			if item.Generated_Image != "" {
				generated = append(generated, models.Generated_Image{URL: item.Generated_Image})
			}
		}
	}

	context := &models.Context_Block{
		Plan:             planResult.Plan,
		Sources:          enriched,
		Attachments:      collectAttachments(messages),
		Generated_Images: generated,
	}
	return context, enriched, planResult.Usage, nil
}

// runToolLoop invokes the model, executes any returned tool calls
// sequentially, and feeds the results back until the model stops calling
// tools or the iteration cap forces termination.
func (g *Generator) runToolLoop(model models.Model, working models.Model_Request, toolset []models.FunctionDeclaration) (models.Model_Response, models.Usage, int, error) {
	byName := map[string]models.FunctionDeclaration{}
	for _, tool := range toolset {
		byName[tool.Name] = tool
	}

	var usage models.Usage
	var response models.Model_Response
	var err error
	iterations := 0

	for iterations < maxToolIterations {
		iterations++
		response, err = model.Model_Request(working, toolset)
		if err != nil {
			return models.Model_Response{}, usage, iterations, err
		}
		usage.Add(response.Usage)

		if len(response.Tool_Calls) == 0 {
			break
		}
		if iterations == maxToolIterations {
			g.logger.Printf("tool loop hit iteration cap with %d calls outstanding", len(response.Tool_Calls))
			break
		}

		results := make([]models.Tool_Result, 0, len(response.Tool_Calls))
		for _, call := range response.Tool_Calls {
			results = append(results, g.executeToolCall(call, byName))
		}

		working.Messages = append(working.Messages,
			models.Message{Role: "assistant", Content: response.Text, Tool_Calls: response.Tool_Calls},
			models.Message{Role: "user", Tool_Results: results},
		)
	}

	return response, usage, iterations, nil
}

// executeToolCall runs one call; every failure becomes a structured error
// result so a single bad invocation never aborts the loop.
func (g *Generator) executeToolCall(call models.Tool_Call, byName map[string]models.FunctionDeclaration) models.Tool_Result {
	result := models.Tool_Result{Tool_ID: call.ID, Tool_Name: call.Name}

	tool, ok := byName[call.Name]
	if !ok || tool.Callable == nil {
		result.Tool_Output = toolErrorPayload(fmt.Sprintf("unknown tool: %s", call.Name))
		return result
	}

	output, err := tool.Callable(call.Args)
	if err != nil {
		g.logger.Printf("tool %s failed: %v", call.Name, err)
		result.Tool_Output = toolErrorPayload(err.Error())
		return result
	}
	result.Tool_Output = output
	return result
}

func toolErrorPayload(message string) string {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return string(payload)
}

func (g *Generator) resolveModel(provider, modelName string) (string, models.Model, string, error) {
	if provider == "" {
		provider = g.Config.DefaultProvider
	}

	if g.ModelFactory != nil {
		model, err := g.ModelFactory(provider, modelName)
		return provider, model, modelName, err
	}

	switch provider {
	case "openai":
		if modelName == "" {
			modelName = g.Config.OpenAIModel
		}
		return provider, openai.New(modelName, g.Config.OpenAIKey), modelName, nil
	case "gemini":
		if modelName == "" {
			modelName = g.Config.GeminiModel
		}
		return provider, gemini.New(modelName, g.Config.GeminiKey), modelName, nil
	default:
		return "", nil, "", fmt.Errorf("unknown provider: %s", provider)
	}
}

func (g *Generator) recordTrace(request Generate_Request, provider, modelName, resultType string, iterations int, usage models.Usage, started time.Time, genErr error) {
	if g.Traces == nil {
		return
	}
	trace := &stores.Generation_Trace{
		Provider:         provider,
		Model:            modelName,
		EnableSearch:     request.EnableWebSearch,
		ResultType:       resultType,
		ToolIterations:   iterations,
		PromptTokens:     usage.Prompt_Tokens,
		CompletionTokens: usage.Completion_Tokens,
		TotalTokens:      usage.Total_Tokens,
		DurationMs:       time.Since(started).Milliseconds(),
	}
	if genErr != nil {
		trace.Error = genErr.Error()
	}
	if err := g.Traces.Save_Trace(trace); err != nil {
		g.logger.Printf("failed to save trace: %v", err)
	}
}

func lastUserText(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && messages[i].Content != "" {
			return messages[i].Content
		}
	}
	return ""
}

func collectAttachments(messages []models.Message) []models.Attachment {
	var attachments []models.Attachment
	for _, msg := range messages {
		attachments = append(attachments, msg.Attachments...)
	}
	return attachments
}
