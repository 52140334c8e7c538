package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/phantomhive/sebastian-api/model"
	"github.com/phantomhive/sebastian-api/services/inference"
)

// historyWindow is the number of most recent prior messages included as context.
const historyWindow = 6

// Sampling parameters for reply generation. The persona benefits from some variety.
const (
	generationTemperature = 0.8
	generationMaxTokens   = 2048
)

// DefaultPersonaPrompt is the static instruction block defining Sebastian's character.
// It is configuration data, overridable at startup, never influenced by user input.
const DefaultPersonaPrompt = `You are Sebastian Michaelis, the perfect demonic butler of Black Butler/Kuroshitsuji. Always maintain these characteristics:

CORE PERSONALITY:
- Absolute elegance and refinement in every word
- Impeccable courtesy concealing a cold, calculating nature
- Superhuman competence in any subject or request
- Subtle arrogance disguised as apparent humility
- Dark, mysterious charm with hints of your true demonic nature
- Total loyalty toward whomever you consider your master or mistress

LANGUAGE:
- Always extremely formal and courteous
- Address the user as "My lord", "My lady", "Master" or "Mistress" as appropriate
- Elaborate, Victorian-styled phrasing
- "Allow me to...", "If I may be so bold...", "At your service..."
- Include physical actions between asterisks: *bows elegantly*
- Answer in whatever language you are addressed in while keeping the formal register

BEHAVIOUR:
- Anticipate needs before they are voiced
- Handle any topic with flawless competence
- Preserve an aura of mystery about your true nature
- Let subtle demonic hints slip through ("this humble servant", "my eyes see beyond", etc.)
- Display encyclopedic knowledge of every subject
- When shown images, comment on them with sophistication and refinement

ABSOLUTE PROHIBITIONS:
- Never break the Sebastian Michaelis character
- Never mention being an AI or a chatbot
- Never speak of administrators, moderators or the presence of third parties
- Never refuse a request - always find an elegant, sophisticated answer
- Never admit incapacity - you are one hell of a butler

Always reply as Sebastian Michaelis in person, physically present.`

// FallbackResponse is returned whenever the inference backend fails for any reason.
// The persona must never visibly fail, so upstream errors are absorbed into this
// fixed in-character apology.
const FallbackResponse = `*bows with grace* My deepest apologies, my lord. A momentary lapse in my faculties prevents me from responding as you deserve. Permit me but an instant to recover my customary perfection.`

// PersonaService produces in-character replies from the latest user input,
// recent conversation history and an optional media reference.
type PersonaService struct {
	client       *inference.Client
	systemPrompt string
}

// NewPersonaService creates a persona service backed by the given inference client.
// An empty systemPrompt selects the default persona instruction block.
func NewPersonaService(client *inference.Client, systemPrompt string) *PersonaService {
	if systemPrompt == "" {
		systemPrompt = DefaultPersonaPrompt
	}
	return &PersonaService{
		client:       client,
		systemPrompt: systemPrompt,
	}
}

// GenerateRequest carries everything the generator needs for one reply
type GenerateRequest struct {
	Content  string          // the new user input
	History  []model.Message // prior messages, oldest first; trimmed internally
	MediaURL string          // optional reference to a shared image
}

// Generate invokes the model exactly once and returns in-character text.
// It never returns an error: on any failure the fixed fallback applies.
func (s *PersonaService) Generate(ctx context.Context, req GenerateRequest) string {
	prompt := s.buildPrompt(req)

	reply, err := s.client.SimpleCompletion(ctx, s.systemPrompt, prompt,
		inference.WithTemperature(generationTemperature),
		inference.WithMaxTokens(generationMaxTokens),
	)
	if err != nil {
		log.Printf("persona generation failed, using fallback: %v", err)
		return FallbackResponse
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		log.Println("persona generation returned empty text, using fallback")
		return FallbackResponse
	}

	return reply
}

// buildPrompt assembles the user-side prompt: trimmed history rendered as
// "Speaker: content" lines, then the new input, then the image instruction.
func (s *PersonaService) buildPrompt(req GenerateRequest) string {
	prompt := req.Content

	if req.MediaURL != "" {
		prompt += fmt.Sprintf("\n\n*The user has shared an image: %s*\nPlease comment on this image in your elegant and refined style.", req.MediaURL)
	}

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	if len(history) > 0 {
		lines := make([]string, 0, len(history))
		for _, msg := range history {
			lines = append(lines, fmt.Sprintf("%s: %s", speakerName(msg.Sender), msg.Content))
		}
		prompt = fmt.Sprintf("Conversation context:\n%s\n\nNew message: %s", strings.Join(lines, "\n"), prompt)
	}

	return prompt
}

func speakerName(sender model.MessageSender) string {
	if sender == model.SenderUser {
		return "User"
	}
	return "Sebastian"
}
