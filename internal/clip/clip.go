// Package clip normalizes best-effort scraped product data into valid
// records. Scraping itself is an external collaborator; a scrape that could
// not find a title is surfaced by the caller and never enqueued, everything
// else is repaired here.
package clip

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"shoplist-core/internal/models"
	"shoplist-core/internal/uuid"
)

// ScrapedProduct is the raw output of the scraping collaborator. Any field
// may be empty.
type ScrapedProduct struct {
	URL      string          `json:"url"`
	Title    string          `json:"title"`
	Price    float64         `json:"price"`
	Image    string          `json:"image"`
	ImageFit models.ImageFit `json:"imageFit,omitempty"`
}

// HasTitle reports whether the scrape produced a usable title. Callers treat
// a title-less scrape as a failed clip.
func (s ScrapedProduct) HasTitle() bool {
	return strings.TrimSpace(s.Title) != ""
}

var (
	priceRegex    = regexp.MustCompile(`\d[\d,.]*`)
	aliTrailRegex = regexp.MustCompile(`\.html.*`)
)

// Normalize produces a valid ProductRecord from a best-effort scrape. It is
// a pure transform and never fails: missing fields get placeholders, the id
// is freshly assigned, the URL is canonicalized.
func Normalize(s ScrapedProduct) models.ProductRecord {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = models.PlaceholderTitle
	}

	price := s.Price
	if price < 0 {
		price = 0
	}

	fit := s.ImageFit
	if !fit.Valid() {
		fit = models.FitContain
	}

	return models.ProductRecord{
		ID:       uuid.New(),
		URL:      CleanURL(s.URL),
		Title:    title,
		Price:    price,
		Image:    s.Image,
		ImageFit: fit,
	}
}

// CleanURL canonicalizes a product URL to scheme+host+path with the query
// stripped. AliExpress item pages carry tracking segments after ".html"
// that are stripped too. Unparseable input is returned unchanged.
func CleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	path := u.Path
	if strings.Contains(u.Hostname(), "aliexpress") {
		path = aliTrailRegex.ReplaceAllString(path, ".html")
	}
	return u.Scheme + "://" + u.Host + path
}

// ParsePrice extracts a non-negative price from free-form text such as
// "$1,200.50" or "US $10.99". Unparseable input yields 0.
func ParsePrice(s string) float64 {
	match := priceRegex.FindString(s)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ",", "")

	// A stray second dot ("1.2.3") truncates to the longest parseable prefix.
	if first := strings.Index(match, "."); first >= 0 {
		if second := strings.Index(match[first+1:], "."); second >= 0 {
			match = match[:first+1+second]
		}
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
