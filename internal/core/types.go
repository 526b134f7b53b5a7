package core

// Product is the normalized, localized product view-model consumed by
// catalog-facing readers. Raw API records never leave the catalog package.
type Product struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug,omitempty"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	TastingNotes string   `json:"tastingNotes"`
	Category     string   `json:"category"`
	CategoryID   string   `json:"categoryId"`
	CategorySlug string   `json:"categorySlug"`
	Price        float64  `json:"price"`
	Image        string   `json:"image"`
	Images       []string `json:"images,omitempty"`
	// Enriched is false when the detail fetch failed and the list record was used.
	Enriched bool `json:"enriched"`
}

// Category is the normalized, localized category view-model.
type Category struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	DisplayOrder *int   `json:"displayOrder,omitempty"`
	OnHomepage   bool   `json:"onHomepage"`
}
