package catalog

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// MenuItem is one dish the restaurant sells.
type MenuItem struct {
	Name        string   `yaml:"name" json:"name"`
	Category    string   `yaml:"category" json:"category"`
	Price       float64  `yaml:"price" json:"price"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Synonyms    []string `yaml:"synonyms,omitempty" json:"synonyms,omitempty"`
}

// Profile describes the restaurant: contact details, hours and menu.
type Profile struct {
	Name     string     `yaml:"name" json:"name"`
	Location string     `yaml:"location" json:"location"`
	Phone    string     `yaml:"phone" json:"phone"`
	Hours    string     `yaml:"hours" json:"hours"`
	Currency string     `yaml:"currency" json:"currency"`
	Menu     []MenuItem `yaml:"menu" json:"menu"`
}

// Load reads a YAML restaurant profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read restaurant profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse restaurant profile %s: %w", path, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("restaurant profile %s: name is required", path)
	}
	if p.Currency == "" {
		p.Currency = "PKR"
	}
	return &p, nil
}

// Default is used when no profile file is configured.
func Default() *Profile {
	return &Profile{
		Name:     "DinePe Kitchen",
		Location: "Main Boulevard, Lahore",
		Phone:    "+92 300 0000000",
		Hours:    "12:00 - 23:00",
		Currency: "PKR",
		Menu: []MenuItem{
			{Name: "Burger", Category: "Mains", Price: 550, Synonyms: []string{"zinger", "beef burger"}},
			{Name: "Chicken Karahi", Category: "Mains", Price: 1400, Synonyms: []string{"karahi"}},
			{Name: "Biryani", Category: "Mains", Price: 450},
			{Name: "Fries", Category: "Sides", Price: 250, Synonyms: []string{"chips", "french fries"}},
			{Name: "Naan", Category: "Sides", Price: 60, Synonyms: []string{"roti"}},
			{Name: "Cola", Category: "Drinks", Price: 120, Synonyms: []string{"coke", "soft drink"}},
			{Name: "Lassi", Category: "Drinks", Price: 200},
		},
	}
}

// Lookup finds a menu item by name or synonym, tolerating case and plurals.
func (p *Profile) Lookup(name string) (MenuItem, bool) {
	key := normalize(name)
	if key == "" {
		return MenuItem{}, false
	}
	for _, item := range p.Menu {
		if normalize(item.Name) == key {
			return item, true
		}
		for _, syn := range item.Synonyms {
			if normalize(syn) == key {
				return item, true
			}
		}
	}
	return MenuItem{}, false
}

// Names lists menu item names in menu order.
func (p *Profile) Names() []string {
	names := make([]string, 0, len(p.Menu))
	for _, item := range p.Menu {
		names = append(names, item.Name)
	}
	return names
}

// FormatMenu renders the menu grouped by category for prompts and replies.
func (p *Profile) FormatMenu() string {
	var b strings.Builder
	var order []string
	byCategory := map[string][]MenuItem{}
	for _, item := range p.Menu {
		if _, seen := byCategory[item.Category]; !seen {
			order = append(order, item.Category)
		}
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}
	for _, cat := range order {
		fmt.Fprintf(&b, "*%s*\n", cat)
		for _, item := range byCategory[cat] {
			fmt.Fprintf(&b, "• %s - %s %.0f\n", item.Name, p.Currency, item.Price)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	if strings.HasSuffix(s, "es") && len(s) > 4 && !strings.HasSuffix(s, "ies") {
		if trimmed := strings.TrimSuffix(s, "es"); strings.HasSuffix(trimmed, "ch") || strings.HasSuffix(trimmed, "sh") {
			return trimmed
		}
	}
	if strings.HasSuffix(s, "s") && len(s) > 3 && !strings.HasSuffix(s, "ss") {
		return strings.TrimSuffix(s, "s")
	}
	return s
}

// Holder keeps the active profile and lets admins reload it at runtime.
type Holder struct {
	path    string
	current atomic.Pointer[Profile]
}

func NewHolder(path string, initial *Profile) *Holder {
	h := &Holder{path: path}
	h.current.Store(initial)
	return h
}

func (h *Holder) Profile() *Profile {
	return h.current.Load()
}

// Reload re-reads the profile file. Without a configured path it is a no-op.
func (h *Holder) Reload() (*Profile, error) {
	if h.path == "" {
		return h.current.Load(), nil
	}
	p, err := Load(h.path)
	if err != nil {
		return nil, err
	}
	h.current.Store(p)
	return p, nil
}
