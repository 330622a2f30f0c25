package domain

// Item represents a sellable item in the catalog. Prices are expressed in
// satoshis, the smallest currency unit.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
}

// Category groups items for display purposes
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// BasketEntry is a snapshot of an Item plus a quantity. The snapshot is
// taken when the item is added; later catalog edits do not change it.
type BasketEntry struct {
	Item
	Quantity int `json:"quantity"`
}
