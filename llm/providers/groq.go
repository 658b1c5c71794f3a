package providers

import (
	"net/http"
	"os"

	"github.com/hk-410/hakyng-bots/llm"
)

// GroqProvider targets Groq's OpenAI-compatible endpoint.
type GroqProvider struct {
	OpenAIProvider // same request/response format
}

func init() {
	llm.RegisterProvider(&GroqProvider{})
}

// Name returns the provider identifier.
func (g *GroqProvider) Name() string {
	return "groq"
}

// BuildURL constructs the Groq chat completions endpoint.
func (g *GroqProvider) BuildURL(baseURL string) string {
	return chatCompletionsURL(baseURL, "https://api.groq.com/openai/v1")
}

// SetHeaders adds the bearer token from GROQ_API_KEY.
func (g *GroqProvider) SetHeaders(req *http.Request) {
	setBearer(req, os.Getenv("GROQ_API_KEY"))
}
