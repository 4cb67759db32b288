package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Ananth-NQI/dinepe-backend/internal/models"
)

// MenuLookup resolves a phrase to a canonical menu item name.
type MenuLookup func(phrase string) (string, bool)

// KeywordExtractor is a rule-based extractor used when no LLM is configured.
// It understands the common phrasings of each intent and leans on the draft
// context for bare answers like an address or "yes".
type KeywordExtractor struct {
	lookup MenuLookup
}

func NewKeywordExtractor(lookup MenuLookup) *KeywordExtractor {
	return &KeywordExtractor{lookup: lookup}
}

var (
	partySizeRe = regexp.MustCompile(`(?:for|party of)\s+(\d{1,2})\b|(\d{1,2})\s+(?:people|persons|guests|pax)`)
	dateTimeRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ t]\d{2}:\d{2}`)
	nameRe      = regexp.MustCompile(`(?i)\bmy name is\s+([\p{L} .'-]{2,40})`)
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var confirmWords = map[string]bool{
	"yes": true, "y": true, "confirm": true, "confirmed": true, "ok": true, "okay": true,
	"sure": true, "done": true, "go ahead": true, "place order": true, "place my order": true,
	"yes please": true, "yes confirm": true, "haan": true, "ji": true,
}

func (k *KeywordExtractor) Extract(ctx context.Context, text string, c Context) (RawIntent, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	phrase := strings.TrimFunc(t, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) })

	switch {
	case containsAny(t, "cancel", "never mind", "nevermind", "forget it"):
		return RawIntent{Kind: RawCancel, Confidence: 0.8}, nil
	case containsAny(t, "where is my order", "where's my order", "order status", "status of my order", "track"):
		return RawIntent{Kind: RawOrderStatus, Confidence: 0.8}, nil
	case containsAny(t, "complain", "complaint", "cold food", "was cold", "too late", "terrible", "worst", "rude", "refund"):
		return RawIntent{Kind: RawComplaint, Slots: map[string]any{"description": strings.TrimSpace(text)}, Confidence: 0.7}, nil
	}

	if m := nameRe.FindStringSubmatch(text); m != nil {
		return RawIntent{Kind: RawSetName, Slots: map[string]any{"name": strings.TrimSpace(m[1])}, Confidence: 0.8}, nil
	}

	if confirmWords[phrase] {
		if c.DraftKind == models.DraftReservation {
			return RawIntent{Kind: RawConfirmReservation, Confidence: 0.8}, nil
		}
		return RawIntent{Kind: RawConfirmOrder, Confidence: 0.8}, nil
	}

	// A pending address question takes the whole message, so street names
	// like "Burger Street" never reach the menu scan.
	if c.DraftKind == models.DraftOrder && c.NextField == models.FieldAddress {
		return RawIntent{Kind: RawDeliveryAddress, Slots: map[string]any{"address": strings.TrimSpace(text)}, Confidence: 0.6}, nil
	}

	if isReservation(t) || (c.DraftKind == models.DraftReservation && (partySizeRe.MatchString(t) || dateTimeRe.MatchString(t))) {
		slots := map[string]any{}
		if m := partySizeRe.FindStringSubmatch(t); m != nil {
			size := m[1]
			if size == "" {
				size = m[2]
			}
			n, _ := strconv.Atoi(size)
			slots["party_size"] = float64(n)
		}
		if m := dateTimeRe.FindString(t); m != "" {
			slots["date_time"] = strings.Replace(m, "t", " ", 1)
		}
		kind := RawReservation
		if c.DraftKind == models.DraftReservation {
			kind = RawReservationDetails
		}
		return RawIntent{Kind: kind, Slots: slots, Confidence: 0.7}, nil
	}

	slots := map[string]any{}
	if items := k.findItems(t); len(items) > 0 {
		slots["items"] = items
	}
	if orderType := findOrderType(t); orderType != "" {
		slots["order_type"] = orderType
	}

	if len(slots) > 0 {
		kind := RawOrder
		if c.DraftKind == models.DraftOrder {
			kind = RawAddItems
		}
		return RawIntent{Kind: kind, Slots: slots, Confidence: 0.7}, nil
	}

	if c.DraftKind == models.DraftComplaint && c.NextField == models.FieldDescription {
		return RawIntent{Kind: RawComplaint, Slots: map[string]any{"description": strings.TrimSpace(text)}, Confidence: 0.6}, nil
	}

	if containsAny(t, "order", "hungry", "menu") && containsAny(t, "want", "like", "place", "start", "new") {
		return RawIntent{Kind: RawOrder, Confidence: 0.6}, nil
	}
	if containsAny(t, "feedback", "loved it", "delicious", "was great", "was good", "rating") {
		return RawIntent{Kind: RawFeedback, Slots: map[string]any{"feedback": strings.TrimSpace(text)}, Confidence: 0.6}, nil
	}

	return RawIntent{Kind: RawSmalltalk, Confidence: 0.5}, nil
}

// findItems scans the message for menu items, reading the quantity from the
// word right before each match.
func (k *KeywordExtractor) findItems(t string) []any {
	if k.lookup == nil {
		return nil
	}
	words := strings.FieldsFunc(t, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var items []any
	seen := map[string]bool{}
	for i := 0; i < len(words); i++ {
		// prefer the longest phrase starting at i, so "chicken karahi" beats "karahi"
		for span := 3; span >= 1; span-- {
			if i+span > len(words) {
				continue
			}
			name, ok := k.lookup(strings.Join(words[i:i+span], " "))
			if !ok || seen[name] {
				continue
			}
			qty := 1
			if i > 0 {
				if n, err := strconv.Atoi(words[i-1]); err == nil {
					qty = n
				} else if n, ok := numberWords[words[i-1]]; ok {
					qty = n
				}
			}
			items = append(items, map[string]any{"name": name, "quantity": float64(qty)})
			seen[name] = true
			i += span - 1
			break
		}
	}
	return items
}

func findOrderType(t string) string {
	switch {
	case containsAny(t, "delivery", "deliver"):
		return string(models.OrderTypeDelivery)
	case containsAny(t, "takeaway", "take away", "take-away", "pickup", "pick up", "takeout"):
		return string(models.OrderTypeTakeaway)
	case containsAny(t, "dine in", "dine-in", "dinein", "eat in"):
		return string(models.OrderTypeDineIn)
	}
	return ""
}

func isReservation(t string) bool {
	return containsAny(t, "reserve", "reservation", "book a table", "table for", "booking")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
