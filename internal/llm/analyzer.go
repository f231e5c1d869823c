// Package llm provides LLM-based structured analysis of scientific papers.
//
// This package defines the abstraction and prompt engineering required to
// extract structured findings from a paper's title plus abstract or full
// text using a large language model. Results feed the analyses table and
// the full-text enrichment pipeline.
//
// Example usage:
//
//	analyzer := llm.NewOpenAIAnalyzer(llm.OpenAIConfig{APIKey: key})
//	result, err := analyzer.Analyze(ctx, paper.Title, paper.Abstract)
package llm

import (
	"context"
	"fmt"
)

// AnalysisResult contains the structured buckets extracted from a paper.
// Any bucket the model cannot determine from the text is an empty list.
type AnalysisResult struct {
	// Findings lists the key findings and results.
	Findings []string `json:"findings"`

	// Methods lists the methodologies, techniques, or approaches used.
	Methods []string `json:"methods"`

	// Datasets lists the datasets used or created.
	Datasets []string `json:"datasets"`

	// Gaps lists identified research gaps or open questions.
	Gaps []string `json:"gaps"`

	// Limitations lists the study's limitations.
	Limitations []string `json:"limitations"`

	// SuggestedExperiments lists potential future experiments or
	// research directions.
	SuggestedExperiments []string `json:"suggested_experiments"`
}

// PaperAnalyzer defines the interface for LLM-based paper analysis.
//
// Implementations handle provider-specific API calls, response parsing,
// and error handling while conforming to this unified interface.
type PaperAnalyzer interface {
	// Analyze extracts structured findings from the given title and text.
	// The text is either the paper's abstract or its extracted full text.
	// The context should be used for cancellation and deadline propagation.
	Analyze(ctx context.Context, title, text string) (*AnalysisResult, error)

	// Provider returns the name of the LLM provider (e.g., "openai").
	Provider() string

	// Model returns the model identifier being used (e.g., "gpt-4").
	Model() string
}

// systemPrompt fixes the model's role for every analysis request.
const systemPrompt = "You are an expert scientific research assistant. Your goal is to provide structured analysis of academic papers in JSON format."

// userPromptTemplate is the analysis instruction. The JSON structure in the
// prompt must stay in sync with AnalysisResult's field tags.
const userPromptTemplate = `Analyze the following scientific paper and extract the specified information in JSON format.

**Title:** %s
**Text:** %s

**Instructions:**
Based on the text and title, provide a structured analysis covering the following points.
If a section cannot be determined from the text, use an empty list.

**JSON Output Structure:**
{
    "findings": ["List of key findings and results."],
    "methods": ["List of methodologies, techniques, or approaches used."],
    "datasets": ["List of datasets used or created."],
    "gaps": ["List of identified research gaps or open questions."],
    "limitations": ["List of the study's limitations."],
    "suggested_experiments": ["List of potential future experiments or research directions."]
}`

// BuildAnalysisPrompt builds the system and user prompts for paper analysis.
func BuildAnalysisPrompt(title, text string) (system, user string) {
	return systemPrompt, fmt.Sprintf(userPromptTemplate, title, text)
}
