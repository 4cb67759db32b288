package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
)

type fakeChatModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.seen = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools(tools []*schema.ToolInfo) error { return nil }

func TestParseIntentOutput(t *testing.T) {
	raw, err := parseIntentOutput("Sure!\n```json\n{\"intent\": \"order\", \"slots\": {\"order_type\": \"delivery\"}, \"confidence\": 1.4}\n```")
	require.NoError(t, err)
	assert.Equal(t, RawOrder, raw.Kind)
	assert.Equal(t, "delivery", raw.Slots["order_type"])
	assert.Equal(t, 1.0, raw.Confidence)

	_, err = parseIntentOutput("I am not sure")
	assert.Error(t, err)

	_, err = parseIntentOutput(`{"slots": {}}`)
	assert.Error(t, err)
}

func TestLLMExtractorRendersContext(t *testing.T) {
	fake := &fakeChatModel{reply: `{"intent":"delivery_address","slots":{"address":"12 Mall Road"},"confidence":0.9}`}
	extractor, err := NewLLMExtractor(context.Background(), fake)
	require.NoError(t, err)

	raw, err := extractor.Extract(context.Background(), "12 Mall Road", Context{
		DraftKind: models.DraftOrder,
		NextField: models.FieldAddress,
		MenuItems: []string{"Burger", "Fries"},
	})
	require.NoError(t, err)
	assert.Equal(t, RawDeliveryAddress, raw.Kind)

	require.Len(t, fake.seen, 2)
	assert.Contains(t, fake.seen[0].Content, `{"intent": "<kind>"`)
	assert.Contains(t, fake.seen[1].Content, "next missing field: address")
	assert.Contains(t, fake.seen[1].Content, "Menu: Burger, Fries")
	assert.Contains(t, fake.seen[1].Content, "Customer message: 12 Mall Road")
}

func TestInterpreterDegradesToFreeform(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("upstream 503")}
	extractor, err := NewLLMExtractor(context.Background(), fake)
	require.NoError(t, err)
	interp := NewInterpreter(extractor, newTestNormalizer(), zerolog.Nop())

	actions := interp.Interpret(context.Background(), models.InboundMessage{
		CustomerKey: "+92300", Type: models.MessageTypeText, Text: "2 burgers please",
	}, Context{})
	assert.Equal(t, []Action{Freeform{Text: "2 burgers please"}}, actions)
}

func TestInterpreterRoutesLocationsWithoutExtractor(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("must not be called")}
	extractor, err := NewLLMExtractor(context.Background(), fake)
	require.NoError(t, err)
	interp := NewInterpreter(extractor, newTestNormalizer(), zerolog.Nop())

	loc := models.GeoPoint{Latitude: 31.5, Longitude: 74.3}
	actions := interp.Interpret(context.Background(), models.InboundMessage{
		Type: models.MessageTypeLocation, Location: &loc,
	}, Context{})
	assert.Equal(t, []Action{SetDeliveryInfo{Location: &loc}}, actions)
	assert.Nil(t, fake.seen)
}
