package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Ananth-NQI/dinepe-backend/internal/catalog"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
)

// Replier produces a contextual reply for messages that are not state transitions.
type Replier interface {
	Reply(ctx context.Context, req ReplyRequest) (AIReply, error)
}

// ReplyRequest is the read-only context handed to the reply model.
type ReplyRequest struct {
	Profile      *catalog.Profile
	CustomerName string
	History      []models.Turn
	Message      string
	// DraftState describes the current draft, e.g. "order draft, next missing field: address".
	DraftState string
}

type AIReply struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// AIService generates waiter-style replies with a chat model.
type AIService struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

func NewAIService(ctx context.Context, chatModel model.ChatModel) (*AIService, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(replySystemPrompt),
		schema.UserMessage(replyUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}
	return &AIService{chain: runnable}, nil
}

func (a *AIService) Reply(ctx context.Context, req ReplyRequest) (AIReply, error) {
	profile := req.Profile
	if profile == nil {
		profile = catalog.Default()
	}
	name := req.CustomerName
	if name == "" {
		name = "unknown"
	}
	draft := req.DraftState
	if draft == "" {
		draft = "none"
	}

	input := map[string]any{
		"restaurant": profile.Name,
		"location":   profile.Location,
		"phone":      profile.Phone,
		"hours":      profile.Hours,
		"menu":       profile.FormatMenu(),
		"customer":   name,
		"draft":      draft,
		"history":    formatHistory(req.History),
		"message":    req.Message,
	}

	msg, err := a.chain.Invoke(ctx, input)
	if err != nil {
		return AIReply{}, fmt.Errorf("reply model invoke: %w", err)
	}
	if msg == nil {
		return AIReply{}, fmt.Errorf("reply model returned no message")
	}
	text := strings.TrimSpace(msg.Content)
	if len(text) < 2 {
		return AIReply{}, fmt.Errorf("reply model returned empty content")
	}

	reply := AIReply{Text: text}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		reply.InputTokens = msg.ResponseMeta.Usage.PromptTokens
		reply.OutputTokens = msg.ResponseMeta.Usage.CompletionTokens
	} else {
		// Rough estimate of 4 characters per token when the provider reports nothing.
		reply.InputTokens = (len(req.Message) + len(input["history"].(string)) + len(replySystemPrompt)) / 4
		reply.OutputTokens = len(text) / 4
	}
	return reply, nil
}

func formatHistory(turns []models.Turn) string {
	if len(turns) == 0 {
		return "(no previous messages)"
	}
	var b strings.Builder
	for _, t := range turns {
		role := "Customer"
		if t.Role == models.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, t.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

const replySystemPrompt = `You are a waiter at {restaurant} taking orders via WhatsApp.
Keep responses SHORT and natural like a real waiter. Maximum 2-3 sentences.

Restaurant: {restaurant}
Location: {location}
Phone: {phone}
Hours: {hours}

Menu:
{menu}

Never claim an order, booking or complaint was created; the system confirms those itself.
If the customer is in the middle of something, gently steer them back to it.`

const replyUserPrompt = `Customer name: {customer}
Current draft: {draft}
Recent conversation:
{history}

Customer: {message}`
