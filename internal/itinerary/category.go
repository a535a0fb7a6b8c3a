package itinerary

// Activity categories offered to a lobby.
const (
	CategoryFood          = "Food"
	CategoryRecreation    = "Recreation & Entertainment"
	CategoryNature        = "Nature"
	CategoryArts          = "Arts"
	CategorySocial        = "Social"
	CategoryUncategorized = "Uncategorized"
)

// CategoryStyle is the icon and colour the client renders for a category.
type CategoryStyle struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var categoryStyles = map[string]CategoryStyle{
	CategoryFood:       {Icon: "restaurant", Color: "#D32F2F"},
	CategoryRecreation: {Icon: "game-controller", Color: "#4ECDC4"},
	CategoryNature:     {Icon: "leaf", Color: "#95E1D3"},
	CategoryArts:       {Icon: "brush", Color: "#C2185B"},
	CategorySocial:     {Icon: "people", Color: "#7B1FA2"},
}

var uncategorizedStyle = CategoryStyle{Icon: "help-circle", Color: "#9E9E9E"}

// StyleFor returns the style for a category, falling back to a neutral style.
func StyleFor(category string) CategoryStyle {
	if s, ok := categoryStyles[category]; ok {
		return s
	}
	return uncategorizedStyle
}
