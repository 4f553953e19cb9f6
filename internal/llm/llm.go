// Package llm asks an LLM provider for a second-opinion grading of a call,
// validates the response against the rubric, and performs the single repair
// attempt.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/granin/sample20calls/internal/rules"
	"github.com/granin/sample20calls/internal/schema"
)

// ErrInvalidModelOutput is returned when both the initial and repair LLM
// responses fail validation.
var ErrInvalidModelOutput = errors.New("llm: invalid model output after repair attempt")

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// NewProvider is the factory for creating LLM providers. Tests replace it and
// restore the original with t.Cleanup.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// DefaultModels is the model used per provider when Options.Model is empty.
var DefaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-5",
	"openai":    "gpt-4o",
	"google":    "gemini-1.5-pro",
}

// Options configures a Review call.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	// Debug, when non-nil, receives both prompts before the first call.
	Debug io.Writer
}

func (o Options) providerName() string {
	if o.Provider == "" {
		return "anthropic"
	}
	return strings.ToLower(o.Provider)
}

func (o Options) model() string {
	if o.Model != "" {
		return o.Model
	}
	return DefaultModels[o.providerName()]
}

// ValidationError records a single validation failure on an LLM response.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Grader returns the grader name recorded for a provider's review.
func Grader(providerName string) string {
	if providerName == "" {
		providerName = "anthropic"
	}
	return "llm_" + strings.ToLower(providerName)
}

// Review sends the grading context of one call to the provider and returns
// its assessment of every rubric code.
func Review(ctx context.Context, callID, gradingContext string, opts Options) (*schema.GraderOutput, error) {
	provider, err := NewProvider(opts.providerName(), opts.model())
	if err != nil {
		return nil, fmt.Errorf("llm: create provider: %w", err)
	}

	sysPrompt := buildSystemPrompt()
	userPrompt := buildUserPrompt(gradingContext)

	if opts.Debug != nil {
		fmt.Fprintf(opts.Debug, "=== DEBUG: system prompt ===\n%s\n", sysPrompt)
		fmt.Fprintf(opts.Debug, "=== DEBUG: user prompt ===\n%s\n", userPrompt)
	}

	raw, err := provider.Complete(ctx, sysPrompt, userPrompt, opts.MaxTokens, opts.Temperature)
	if err != nil {
		return nil, fmt.Errorf("llm: complete: %w", err)
	}

	out, errs := ValidateResponse(raw)
	if out == nil || needsRepair(errs) {
		repairPrompt := buildRepairPrompt(userPrompt, raw, errs)
		raw2, err := provider.Complete(ctx, sysPrompt, repairPrompt, opts.MaxTokens, opts.Temperature)
		if err != nil {
			return nil, fmt.Errorf("llm: repair complete: %w", err)
		}
		out, errs = ValidateResponse(raw2)
		if out == nil || needsRepair(errs) {
			return nil, ErrInvalidModelOutput
		}
	}

	out.Grader = Grader(opts.providerName())
	out.CallID = callID
	return out, nil
}

// needsRepair reports whether errs include a failure that requires a retry.
// Confidence and unknown-code issues are corrected in place instead.
func needsRepair(errs []ValidationError) bool {
	for _, e := range errs {
		switch e.Field {
		case "json_parse", "required_field", "status", "final_grade":
			return true
		}
	}
	return false
}

// fenceRe matches a markdown code fence block (``` or ~~~) with an optional
// language tag and captures the content between the fences.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// openFenceRe matches only an opening fence line, as left by a truncated
// response.
var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

// invalidJSONEscapeRe matches a backslash followed by a character that is not
// a valid JSON string escape.
var invalidJSONEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

func fixInvalidJSONEscapes(s string) string {
	return invalidJSONEscapeRe.ReplaceAllString(s, `\\$1`)
}

// response is the wire shape requested from the model.
type response struct {
	FinalGrade         *int                       `json:"final_grade"`
	CriteriaAssessment *schema.CriteriaAssessment `json:"criteria_assessment"`
}

var (
	validStatus = map[schema.Status]bool{
		schema.StatusPass:      true,
		schema.StatusFlag:      true,
		schema.StatusViolation: true,
	}
	validConfidence = map[schema.ConfidenceLevel]bool{
		schema.ConfidenceLow:      true,
		schema.ConfidenceMedium:   true,
		schema.ConfidenceHigh:     true,
		schema.ConfidenceVeryHigh: true,
	}
)

// ValidateResponse parses and validates a raw model response. The returned
// output is nil only when the response cannot be parsed or has no criteria.
// Codes outside the rubric are dropped and unknown confidences become LOW;
// both are recorded as errors but do not require repair. The criteria are
// returned in rubric order.
func ValidateResponse(raw string) (*schema.GraderOutput, []ValidationError) {
	var errs []ValidationError

	raw = stripMarkdownFences(raw)

	var resp response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		if err2 := json.Unmarshal([]byte(fixInvalidJSONEscapes(raw)), &resp); err2 != nil {
			return nil, append(errs, ValidationError{Field: "json_parse", Message: err.Error()})
		}
	}
	if resp.CriteriaAssessment == nil {
		return nil, append(errs, ValidationError{Field: "required_field", Message: "criteria_assessment is missing"})
	}

	got := make(map[string]schema.CriterionAssessment, len(*resp.CriteriaAssessment))
	var unknown []string
	for _, a := range *resp.CriteriaAssessment {
		if !rules.IsCode(a.Code) {
			unknown = append(unknown, a.Code)
			continue
		}
		got[a.Code] = a
	}
	sort.Strings(unknown)
	for _, code := range unknown {
		errs = append(errs, ValidationError{
			Field:   "criteria_assessment." + code,
			Message: "unknown code dropped",
		})
	}

	out := &schema.GraderOutput{FinalGrade: resp.FinalGrade}
	for _, code := range rules.Codes() {
		a, ok := got[code]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "required_field",
				Message: fmt.Sprintf("criteria_assessment.%s is missing", code),
			})
			continue
		}
		if !validStatus[a.Status] {
			errs = append(errs, ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("criteria_assessment.%s: invalid status %q", code, a.Status),
			})
		}
		if !validConfidence[a.Confidence] {
			if a.Confidence != "" {
				errs = append(errs, ValidationError{
					Field:   "criteria_assessment." + code + ".confidence",
					Message: fmt.Sprintf("invalid confidence %q; downgraded to LOW", a.Confidence),
				})
			}
			a.Confidence = schema.ConfidenceLow
		}
		out.CriteriaAssessment = append(out.CriteriaAssessment, a)
	}

	if g := resp.FinalGrade; g != nil && (*g < 1 || *g > 10) {
		errs = append(errs, ValidationError{
			Field:   "final_grade",
			Message: fmt.Sprintf("final_grade %d is outside 1..10", *g),
		})
	}
	return out, errs
}

func buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a contact-center quality evaluator grading one call against a fixed rubric.\n\n")
	sb.WriteString("Output ONLY valid JSON conforming to the schema below. " +
		"No prose, no markdown, no explanation outside the JSON.\n\n")
	sb.WriteString("Use the pre-computed timing and gratitude results for criteria 9.1 and 9.3 as given. " +
		"Cite transcript timestamps in evidence. If a criterion does not apply, mark it PASS and say so in the note.\n\n")
	sb.WriteString("The final grade is the lowest grade among score-affecting violations, or 10 when there are none.\n\n")

	sb.WriteString("Rubric codes:\n")
	for _, c := range rules.Checks {
		fmt.Fprintf(&sb, "  %s: %s\n", c.Code, c.Title)
	}
	sb.WriteString("\n")
	sb.WriteString(outputSchema)
	return sb.String()
}

const outputSchema = `Output schema (JSON only, one entry per rubric code):
{
  "final_grade": 10,
  "criteria_assessment": {
    "7.1": {
      "status": "PASS|FLAG|VIOLATION",
      "confidence": "LOW|MEDIUM|HIGH|VERY_HIGH",
      "evidence": "[0:02.000] Agent: ...",
      "note": null
    }
  }
}
`

func buildUserPrompt(gradingContext string) string {
	var sb strings.Builder
	sb.WriteString(gradingContext)
	sb.WriteString("\n\nProduce the JSON assessment now.")
	return sb.String()
}

// buildRepairPrompt includes the original user prompt and the previous
// invalid response so the model has full context.
func buildRepairPrompt(originalUserPrompt, previousResponse string, errs []ValidationError) string {
	var sb strings.Builder
	sb.WriteString(originalUserPrompt)
	sb.WriteString("\n\nYour previous response was:\n")
	sb.WriteString(previousResponse)
	sb.WriteString("\n\nThat response was invalid. Errors:\n")
	for _, e := range errs {
		fmt.Fprintf(&sb, "  - %s\n", e.Error())
	}
	sb.WriteString("\nPlease output only the corrected JSON conforming to the schema. Do not repeat the error.")
	return sb.String()
}

// ── Provider dispatch ─────────────────────────────────────────────────────────

func defaultNewProvider(providerName, model string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "anthropic", "":
		return newAnthropicProvider(model)
	case "openai":
		return newOpenAIProvider(model)
	case "google":
		return newGoogleProvider(model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", providerName)
	}
}

// ── Anthropic provider ───────────────────────────────────────────────────────

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(model string) (Provider, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("llm: ANTHROPIC_API_KEY environment variable not set")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &anthropicProvider{client: client, model: model}, nil
}

func (p *anthropicProvider) Complete(
	ctx context.Context,
	systemPrompt, userPrompt string,
	maxTokens int,
	temperature float64,
) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: messages.new: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("anthropic: response contained no text content blocks")
	}
	return strings.Join(parts, ""), nil
}
