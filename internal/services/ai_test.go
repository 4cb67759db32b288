package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/dinepe-backend/internal/catalog"
	"github.com/Ananth-NQI/dinepe-backend/internal/models"
)

type fakeChatModel struct {
	reply *schema.Message
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools(tools []*schema.ToolInfo) error { return nil }

func TestAIService_ReplyRendersPromptAndUsage(t *testing.T) {
	msg := schema.AssistantMessage("  Our karahi takes about 25 minutes.  ", nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 812, CompletionTokens: 24, TotalTokens: 836}}
	fake := &fakeChatModel{reply: msg}

	ai, err := NewAIService(context.Background(), fake)
	require.NoError(t, err)

	reply, err := ai.Reply(context.Background(), ReplyRequest{
		Profile:      catalog.Default(),
		CustomerName: "Ayesha",
		History: []models.Turn{
			{Role: models.RoleUser, Message: "hi"},
			{Role: models.RoleAssistant, Message: "Welcome!"},
		},
		Message:    "how long for karahi?",
		DraftState: "order draft, next missing field: order_type",
	})
	require.NoError(t, err)

	assert.Equal(t, "Our karahi takes about 25 minutes.", reply.Text)
	assert.Equal(t, 812, reply.InputTokens)
	assert.Equal(t, 24, reply.OutputTokens)

	require.Len(t, fake.seen, 2)
	assert.Contains(t, fake.seen[0].Content, "DinePe Kitchen")
	assert.Contains(t, fake.seen[0].Content, "Chicken Karahi")
	assert.Contains(t, fake.seen[1].Content, "Customer name: Ayesha")
	assert.Contains(t, fake.seen[1].Content, "Customer: hi\nAssistant: Welcome!")
	assert.Contains(t, fake.seen[1].Content, "next missing field: order_type")
}

func TestAIService_EstimatesUsageWithoutMetadata(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage("We open at noon.", nil)}
	ai, err := NewAIService(context.Background(), fake)
	require.NoError(t, err)

	reply, err := ai.Reply(context.Background(), ReplyRequest{Message: "when do you open?"})
	require.NoError(t, err)
	assert.Positive(t, reply.InputTokens)
	assert.Equal(t, len("We open at noon.")/4, reply.OutputTokens)
}

func TestAIService_Errors(t *testing.T) {
	ai, err := NewAIService(context.Background(), &fakeChatModel{err: errors.New("rate limited")})
	require.NoError(t, err)
	_, err = ai.Reply(context.Background(), ReplyRequest{Message: "hi"})
	assert.ErrorContains(t, err, "rate limited")

	ai, err = NewAIService(context.Background(), &fakeChatModel{reply: schema.AssistantMessage(" ", nil)})
	require.NoError(t, err)
	_, err = ai.Reply(context.Background(), ReplyRequest{Message: "hi"})
	assert.Error(t, err)
}

func TestAIService_NilMessageIsAnError(t *testing.T) {
	ai, err := NewAIService(context.Background(), &fakeChatModel{})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		reply, err := ai.Reply(context.Background(), ReplyRequest{Message: "hi"})
		assert.Error(t, err)
		assert.Empty(t, reply.Text)
	})
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "(no previous messages)", formatHistory(nil))
}

func TestWhatsappAddress(t *testing.T) {
	assert.Equal(t, "whatsapp:+923001234567", whatsappAddress("+923001234567"))
	assert.Equal(t, "whatsapp:+923001234567", whatsappAddress("whatsapp:+923001234567"))
}
