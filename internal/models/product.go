// Package models provides data model definitions for the shoplist state engine.
package models

// ImageFit controls how a product image is scaled when displayed.
type ImageFit string

const (
	FitContain ImageFit = "contain"
	FitCover   ImageFit = "cover"
)

// Valid reports whether the fit is one of the recognized values.
func (f ImageFit) Valid() bool {
	return f == FitContain || f == FitCover
}

// PlaceholderTitle is substituted when scraping yields an empty title.
const PlaceholderTitle = "Untitled Item"

// ProductRecord represents one clipped product listing.
type ProductRecord struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Price    float64  `json:"price"`
	Image    string   `json:"image,omitempty"`
	ImageFit ImageFit `json:"imageFit,omitempty"`
}

// Clone returns a deep copy of the record.
func (p ProductRecord) Clone() ProductRecord {
	return p
}

// DisplayTitle returns the title, or the placeholder when empty.
func (p ProductRecord) DisplayTitle() string {
	if p.Title == "" {
		return PlaceholderTitle
	}
	return p.Title
}
