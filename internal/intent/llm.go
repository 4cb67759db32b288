package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// LLMExtractor asks a chat model to classify the message into a raw intent
// with slots, answering in JSON.
type LLMExtractor struct {
	classifier compose.Runnable[map[string]any, *schema.Message]
	now        func() time.Time
}

func NewLLMExtractor(ctx context.Context, chatModel model.ChatModel) (*LLMExtractor, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(intentSystemPrompt),
		schema.UserMessage(intentUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile intent chain: %w", err)
	}
	return &LLMExtractor{classifier: runnable, now: time.Now}, nil
}

func (e *LLMExtractor) Extract(ctx context.Context, text string, c Context) (RawIntent, error) {
	input := map[string]any{
		"now":     e.now().Format("2006-01-02 15:04 (Monday)"),
		"menu":    strings.Join(c.MenuItems, ", "),
		"draft":   describeDraft(c),
		"history": formatTurns(c),
		"message": text,
	}

	msg, err := e.classifier.Invoke(ctx, input)
	if err != nil {
		return RawIntent{}, fmt.Errorf("intent model invoke: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return RawIntent{}, fmt.Errorf("intent model returned empty content")
	}
	return parseIntentOutput(msg.Content)
}

func parseIntentOutput(content string) (RawIntent, error) {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return RawIntent{}, fmt.Errorf("no JSON object in intent output")
	}

	var raw RawIntent
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return RawIntent{}, fmt.Errorf("decode intent output: %w", err)
	}
	if strings.TrimSpace(raw.Kind) == "" {
		return RawIntent{}, fmt.Errorf("intent output has no intent")
	}
	if raw.Confidence > 1 {
		raw.Confidence = 1
	}
	return raw, nil
}

func describeDraft(c Context) string {
	if c.DraftKind == "" {
		return "none"
	}
	if c.NextField == "" {
		return fmt.Sprintf("%s draft, complete and waiting for confirmation", c.DraftKind)
	}
	return fmt.Sprintf("%s draft, next missing field: %s", c.DraftKind, c.NextField)
}

func formatTurns(c Context) string {
	if len(c.RecentTurns) == 0 {
		return "(no previous messages)"
	}
	var b strings.Builder
	for _, t := range c.RecentTurns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Literal braces are doubled for the FString template.
const intentSystemPrompt = `You classify WhatsApp messages sent to a restaurant.
Answer with a single JSON object and nothing else:
{{"intent": "<kind>", "slots": {{...}}, "confidence": <0..1>}}

Kinds and their slots:
- order: customer starts a new order. slots: items, order_type, address
- add_items: adds or changes items / order type / address of the current order. slots: items, order_type, address
- set_order_type: slots: order_type (dine_in | takeaway | delivery)
- delivery_address: customer typed their delivery address. slots: address
- confirm_order: customer confirms the current order
- cancel: customer abandons what they were doing
- reservation: customer wants to book a table. slots: date_time, party_size, special_requests
- reservation_details: more details for the current reservation. same slots
- confirm_reservation: customer confirms the reservation
- complaint: customer reports a problem. slots: description
- order_status: customer asks where their order is
- feedback: customer gives feedback about a completed order. slots: feedback
- set_name: customer tells their name. slots: name
- smalltalk: greetings, menu questions, anything else

items is a list of {{"name": <menu item>, "quantity": <integer>}} using menu names.
date_time uses "YYYY-MM-DD HH:MM" in restaurant local time.
Only include slots the customer actually stated. Short answers like "yes" or an
address usually answer the draft's next missing field.`

const intentUserPrompt = `Current time: {now}
Menu: {menu}
Current draft: {draft}
Recent conversation:
{history}

Customer message: {message}`
