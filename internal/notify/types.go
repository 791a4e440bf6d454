package notify

// Category groups notifications for gating and routing.
type Category string

const (
	CategoryOrder     Category = "order"
	CategoryBox       Category = "box"
	CategoryPromotion Category = "promotion"
	CategorySystem    Category = "system"
	CategorySocial    Category = "social"
)

// Priority ranks delivery urgency. It is independent of the toast/sound flags.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Notification is the user-facing, classified result of one live event.
// Exactly one notification traces back to exactly one event.
type Notification struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Category  Category       `json:"category"`
	Data      map[string]any `json:"data,omitempty"`
	Priority  Priority       `json:"priority"`
	Timestamp int64          `json:"timestamp"` // unix milli
	ShowToast bool           `json:"show_toast"`
	PlaySound bool           `json:"play_sound"`
	Read      bool           `json:"read"`
}

// Settings is the user-facing notification preferences, read-only from the
// pipeline's perspective. Changing settings never rewrites stored
// notifications, it only changes future gating decisions.
type Settings struct {
	Enabled   bool `json:"enabled"`
	Sound     bool `json:"sound"`
	Order     bool `json:"order"`
	Box       bool `json:"box"`
	Promotion bool `json:"promotion"`
	Social    bool `json:"social"`
	System    bool `json:"system"`
}

// DefaultSettings has everything switched on.
func DefaultSettings() Settings {
	return Settings{Enabled: true, Sound: true, Order: true, Box: true, Promotion: true, Social: true, System: true}
}

// CategoryEnabled maps a category to its settings toggle explicitly.
// Unknown categories are disabled.
func (s Settings) CategoryEnabled(c Category) bool {
	switch c {
	case CategoryOrder:
		return s.Order
	case CategoryBox:
		return s.Box
	case CategoryPromotion:
		return s.Promotion
	case CategorySocial:
		return s.Social
	case CategorySystem:
		return s.System
	default:
		return false
	}
}
