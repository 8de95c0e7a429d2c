package diagnosis

import "github.com/abhisek/adaptd/internal/llm"

// ClassificationSchema defines the JSON schema for LLM error classification
// responses.
var ClassificationSchema = &llm.Schema{
	Name:        "error-classification",
	Description: "Classification of a wrong answer as a conceptual, computational or typo error",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"error_type": map[string]any{
				"type":        "string",
				"enum":        []any{string(ErrorConceptual), string(ErrorComputational), string(ErrorTypo)},
				"description": "conceptual: wrong method or misunderstanding; computational: right method, arithmetic slip; typo: input slip such as a swapped or missing character",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence score (0.0–1.0) for the chosen error type",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Brief one-sentence explanation of the classification",
			},
		},
		"required":             []any{"error_type", "confidence", "reasoning"},
		"additionalProperties": false,
	},
}
