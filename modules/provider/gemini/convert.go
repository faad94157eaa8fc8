package gemini

import (
	"strings"

	"github.com/earmeout/earmeout/internal/provider"
)

// --- generateContent request/response types (serialization only) ---

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// convertRequest builds a generateContent body. System messages are joined
// into systemInstruction; assistant turns use the "model" role.
func convertRequest(req provider.CompletionRequest, cfg *Config) generateRequest {
	var system []string
	out := generateRequest{Contents: make([]content, 0, len(req.Messages))}

	for _, m := range req.Messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			system = append(system, m.Content)
		case provider.MessageRoleAssistant:
			out.Contents = append(out.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			out.Contents = append(out.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}

	if len(system) > 0 {
		out.SystemInstruction = &content{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}
	if cfg.Temperature != nil || cfg.MaxTokens > 0 {
		out.GenerationConfig = &generationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		}
	}
	return out
}

// fromResponse converts the first candidate. Its text is the concatenation
// of its parts. The caller guarantees at least one candidate.
func fromResponse(resp *generateResponse) provider.CompletionResponse {
	c := resp.Candidates[0]
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		sb.WriteString(p.Text)
	}
	return provider.CompletionResponse{
		Content:      sb.String(),
		FinishReason: mapFinishReason(c.FinishReason),
		Usage: provider.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}
}

func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "":
		return ""
	case "STOP":
		return provider.FinishReasonStop
	case "MAX_TOKENS":
		return provider.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(strings.ToLower(reason))
	}
}
