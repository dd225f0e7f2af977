package orchestrator

import (
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/GriffinCanCode/voiceorder/internal/catalog"
	"github.com/GriffinCanCode/voiceorder/internal/tools"
)

const baseInstruction = `You are the voice assistant of a fast-food restaurant.
You speak Uzbek, Russian and English; answer in the language the customer uses.

MAIN TASKS:
- Take orders by voice using the cart functions.
- Recommend items from the menu.
- Answer factual questions about the restaurant from the knowledge base.

STYLE:
- Be short, clear and polite.
- Confirm what you added or removed using the product's exact menu name.`

const orderingHints = `IMPORTANT: If the customer uses a generic name (for example 'Cola'), pick the closest item from the menu (for example 'Pepsi 0.5L') and pass that exact name to 'addToOrder'.
IMPORTANT 2: If the question is about the restaurant itself (opening hours, location, contacts, payment, delivery, Wi-Fi, rules), call 'queryKnowledgeBase' first. Do not guess; rely only on the knowledge base.`

const emptyKnowledge = "The knowledge base has not been filled in yet."

// PromptConfig shapes the live session setup.
type PromptConfig struct {
	Voice          string
	KnowledgeLimit int // in characters
}

// SystemInstruction embeds the knowledge base and menu into the base
// instruction.
func SystemInstruction(snap catalog.Snapshot, knowledgeLimit int) string {
	knowledge := truncateRunes(strings.TrimSpace(snap.Knowledge), knowledgeLimit)
	if knowledge == "" {
		knowledge = emptyKnowledge
	}

	var b strings.Builder
	b.WriteString(baseInstruction)
	b.WriteString("\n\n[KNOWLEDGE BASE]:\n")
	b.WriteString(knowledge)
	b.WriteString("\n\n[AVAILABLE MENU]:\n")
	b.WriteString(snap.MenuList())
	b.WriteString("\n\n")
	b.WriteString(orderingHints)
	return b.String()
}

// LiveConfig builds the session setup: audio replies in the configured
// voice, both transcriptions, the system instruction and the tools.
func LiveConfig(snap catalog.Snapshot, pc PromptConfig) *genai.LiveConnectConfig {
	return &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: pc.Voice},
			},
		},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: SystemInstruction(snap, pc.KnowledgeLimit)}},
		},
		Tools:                    []*genai.Tool{{FunctionDeclarations: ToolDeclarations()}},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
}

// ToolDeclarations describes the dispatcher's functions to the assistant.
func ToolDeclarations() []*genai.FunctionDeclaration {
	noArgs := func() *genai.Schema {
		return &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	}
	return []*genai.FunctionDeclaration{
		{
			Name:        tools.AddToOrder,
			Description: "Add an item to the cart. IMPORTANT: match the customer's request to one of the exact names in the AVAILABLE MENU list before calling this.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"itemName": {Type: genai.TypeString, Description: "The closest matching product name from the menu list"},
					"quantity": {Type: genai.TypeNumber, Description: "Quantity"},
				},
				Required: []string{"itemName"},
			},
		},
		{
			Name:        tools.RemoveFromOrder,
			Description: "Remove an item from the cart.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"itemName": {Type: genai.TypeString},
					"quantity": {Type: genai.TypeNumber},
				},
				Required: []string{"itemName"},
			},
		},
		{Name: tools.ClearOrder, Description: "Remove all items from the cart.", Parameters: noArgs()},
		{Name: tools.GetCartStatus, Description: "Get the current items and total price in the cart.", Parameters: noArgs()},
		{Name: tools.ConfirmOrder, Description: "Go to the checkout/payment page.", Parameters: noArgs()},
		{
			Name:        tools.QueryKnowledgeBase,
			Description: "Search the restaurant knowledge base for factual answers (hours, address, delivery, payment, contacts, policies, Wi-Fi). Always use this before answering informational questions.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {Type: genai.TypeString, Description: "The customer's question or keywords to search for"},
				},
				Required: []string{"query"},
			},
		},
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
