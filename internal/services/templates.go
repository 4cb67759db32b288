package services

import (
	"fmt"
	"sort"
	"strings"
)

// TemplateConfig holds a reply template and its required parameters
type TemplateConfig struct {
	Body        string
	Description string
	Parameters  []string
}

// ReplyTemplates maps template names to reply bodies. Parameters are written
// as {{name}} in the body.
var ReplyTemplates = map[string]TemplateConfig{
	"ask_order_type": {
		Body:        "Would you like to *dine in*, *take away* or get it *delivered*?",
		Description: "Order draft needs the order type",
	},
	"ask_items": {
		Body:        "What would you like to order? Here is our menu:\n\n{{menu}}",
		Description: "Order draft needs at least one item",
		Parameters:  []string{"menu"},
	},
	"ask_address": {
		Body:        "Please send your full delivery address (house, street, area).",
		Description: "Delivery order needs the typed address",
	},
	"ask_location": {
		Body:        "Got it. Now please share your location pin so our rider can find you.",
		Description: "Delivery order needs the GPS pin",
	},
	"ask_date_time": {
		Body:        "For which date and time should I book the table?",
		Description: "Reservation needs a date and time",
	},
	"ask_party_size": {
		Body:        "How many people will be joining?",
		Description: "Reservation needs the party size",
	},
	"ask_description": {
		Body:        "I'm sorry to hear that. Please tell me what went wrong so we can fix it.",
		Description: "Complaint needs a description",
	},
	"order_summary": {
		Body:        "Your order:\n{{items}}\nType: {{order_type}}{{delivery}}\nTotal: {{currency}} {{total}}\n\nReply *confirm* to place the order or *cancel* to start over.",
		Description: "Complete order draft awaiting confirmation",
		Parameters:  []string{"items", "order_type", "delivery", "currency", "total"},
	},
	"reservation_summary": {
		Body:        "Table for {{party_size}} on {{date_time}}{{requests}}.\n\nReply *confirm* to book it or *cancel* to start over.",
		Description: "Complete reservation draft awaiting confirmation",
		Parameters:  []string{"party_size", "date_time", "requests"},
	},
	"order_confirmed": {
		Body:        "✅ Order *{{reference}}* placed!\n{{items}}\nTotal: {{currency}} {{total}}\nEstimated ready by {{eta}}.",
		Description: "Order committed",
		Parameters:  []string{"reference", "items", "currency", "total", "eta"},
	},
	"reservation_confirmed": {
		Body:        "✅ Table booked! Reference *{{reference}}* for {{party_size}} on {{date_time}}. See you at {{restaurant}}.",
		Description: "Reservation committed",
		Parameters:  []string{"reference", "party_size", "date_time", "restaurant"},
	},
	"complaint_filed": {
		Body:        "We're sorry about this. Your complaint *{{reference}}* has been logged and our manager will get back to you shortly.",
		Description: "Complaint committed",
		Parameters:  []string{"reference"},
	},
	"order_status": {
		Body:        "Order *{{reference}}* ({{items}}) is *{{status}}*.{{eta}}",
		Description: "Latest active order status",
		Parameters:  []string{"reference", "items", "status", "eta"},
	},
	"no_active_order": {
		Body:        "You don't have any active orders right now. Would you like to place one?",
		Description: "Status asked without an active order",
	},
	"draft_cancelled": {
		Body:        "No problem, I've cancelled that. Anything else I can help with?",
		Description: "Draft cancelled",
	},
	"feedback_thanks": {
		Body:        "Thank you for your feedback on order *{{reference}}*! We hope to serve you again soon.",
		Description: "Feedback stored on the order",
		Parameters:  []string{"reference"},
	},
	"feedback_request": {
		Body:        "Hi{{name}}! How was your order *{{reference}}* ({{items}})? We'd love to hear your feedback.",
		Description: "Delayed feedback request after completion",
		Parameters:  []string{"name", "reference", "items"},
	},
	"profile_updated": {
		Body:        "Thanks{{name}}, I've saved your details.",
		Description: "Customer profile updated",
		Parameters:  []string{"name"},
	},
	"clarify": {
		Body:        "Sorry, I didn't quite get that{{reason}}. Could you rephrase?",
		Description: "Slot failed validation",
		Parameters:  []string{"reason"},
	},
	"confirm_rejected": {
		Body:        "Almost there! I still need a few details before I can confirm.",
		Description: "Confirm on an incomplete draft",
	},
	"greeting": {
		Body:        "Welcome to {{restaurant}}! You can order food, book a table or ask about your order.",
		Description: "Fallback reply when no AI model is configured",
		Parameters:  []string{"restaurant"},
	},
	"retry_later": {
		Body:        "We're handling your previous message. Please send that again in a moment.",
		Description: "Gate wait exceeded or queue full",
	},
	"generic_apology": {
		Body:        "I apologize, but I encountered an error processing your request. Please try again.",
		Description: "Reconciliation failed",
	},
}

// RenderTemplate fills a reply template with parameters
func RenderTemplate(templateName string, params map[string]string) (string, error) {
	template, exists := ReplyTemplates[templateName]
	if !exists {
		return "", fmt.Errorf("template '%s' not found", templateName)
	}

	// Validate required parameters
	for _, requiredParam := range template.Parameters {
		if _, ok := params[requiredParam]; !ok {
			return "", fmt.Errorf("missing required parameter: %s", requiredParam)
		}
	}

	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template.Body), nil
}

// TemplateNames lists templates in name order.
func TemplateNames() []string {
	names := make([]string, 0, len(ReplyTemplates))
	for name := range ReplyTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
