package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/codequery-mcp/internal/tools"
)

const systemIntro = `You are an expert software engineer answering questions about a codebase. You explore the code with the tools below, following a think -> act -> observe loop, then give a grounded answer citing the files you used.`

const answerSchemaDescription = `{"answer": "<comprehensive answer>", "confidence": "high" | "medium" | "low", "sources": ["<file path>", ...], "reasoning": "<brief explanation>"}`

// buildToolPrompt renders the prompt for a tool-calling round: tool specs,
// question, transcript so far, and the required action envelope format.
func buildToolPrompt(specs []tools.Spec, question string, transcript []entry, round, maxRounds int) string {
	var b strings.Builder
	b.WriteString(systemIntro)
	b.WriteString("\n\nAvailable tools:\n")
	for _, spec := range specs {
		params, _ := json.Marshal(spec.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", spec.Name, spec.Description, params)
	}

	b.WriteString("\nRespond with exactly one JSON object, nothing else. Either call one tool:\n")
	b.WriteString(`{"action": "<tool name>", "tool_input": { ... }}`)
	b.WriteString("\nor, if you already know enough, answer now:\n")
	b.WriteString(`{"action": "final", "final": `)
	b.WriteString(answerSchemaDescription)
	b.WriteString("}\n")

	fmt.Fprintf(&b, "\nThis is round %d of at most %d. After round %d you must answer from what you have gathered.\n",
		round, maxRounds, maxRounds-1)

	writeQuestionAndTranscript(&b, question, transcript)
	return b.String()
}

// buildSummaryPrompt renders the forced-summary prompt. No tool definitions
// are included: the model must answer from the transcript.
func buildSummaryPrompt(question string, transcript []entry) string {
	var b strings.Builder
	b.WriteString(systemIntro)
	b.WriteString("\n\nThis is the final round. You must now give your final answer based on everything gathered so far. Do not request any tools.\n")
	b.WriteString("\nRespond with exactly one JSON object in this form, nothing else:\n")
	b.WriteString(answerSchemaDescription)
	b.WriteString("\n")

	writeQuestionAndTranscript(&b, question, transcript)
	return b.String()
}

// correctivePrompt appends the schema error to a summary prompt so the
// model can fix its output shape.
func correctivePrompt(base string, schemaErr error) string {
	return base + fmt.Sprintf(
		"\nYour previous answer was rejected: %v\nReturn a corrected JSON object matching the required form exactly.\n",
		schemaErr)
}

func writeQuestionAndTranscript(b *strings.Builder, question string, transcript []entry) {
	fmt.Fprintf(b, "\nQuestion: %s\n", question)
	if len(transcript) == 0 {
		return
	}
	b.WriteString("\nTranscript so far:\n")
	for _, e := range transcript {
		fmt.Fprintf(b, "[%s] %s\n", e.role, e.content)
	}
}
