package models

// Catalog holds the selectable lists for the travel-request form.
// Loaded once from configs/catalog.yaml at startup.
type Catalog struct {
	Destinations      []string `yaml:"destinations" json:"destinations"`
	AccommodationType []string `yaml:"accommodation_type" json:"accommodation_type"`
	Activities        []string `yaml:"activities" json:"activities"`
}
