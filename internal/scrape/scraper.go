// Package scrape provides best-effort product extraction from listing pages
// using HTML parsing. Extraction never fails hard: whatever fields the page
// yields are returned and the normalizer repairs the rest.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"shoplist-core/internal/clip"
)

// maxPageBytes caps how much of a listing page is read.
const maxPageBytes = 4 << 20

// Scraper fetches listing pages and extracts product fields.
type Scraper struct {
	client *http.Client
}

// NewScraper creates a Scraper with default limits.
func NewScraper() *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Scrape fetches the page at rawURL and extracts product fields from it.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (clip.ScrapedProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return clip.ScrapedProduct{}, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return clip.ScrapedProduct{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return clip.ScrapedProduct{}, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	product, err := s.Extract(io.LimitReader(resp.Body, maxPageBytes), rawURL)
	if err != nil {
		return clip.ScrapedProduct{}, err
	}
	return product, nil
}

// Extract parses HTML and pulls out the product fields. The final URL on the
// record is the page URL, not anything the page claims about itself.
func (s *Scraper) Extract(r io.Reader, pageURL string) (clip.ScrapedProduct, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return clip.ScrapedProduct{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return clip.ScrapedProduct{
		URL:   pageURL,
		Title: s.extractTitle(doc),
		Price: s.extractPrice(doc),
		Image: s.extractImage(doc),
	}, nil
}

// extractTitle prefers og:title over the document title: listing pages pad
// <title> with store branding.
func (s *Scraper) extractTitle(doc *html.Node) string {
	if title := extractMetaProperty(doc, "og:title"); title != "" {
		return title
	}

	var title string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
			if title != "" {
				return
			}
		}
	}
	f(doc)

	if title == "" {
		title = extractTextByTag(doc, "h1")
	}
	return title
}

// extractPrice reads structured price metadata. Free-form price text in the
// page body is too store-specific to chase here.
func (s *Scraper) extractPrice(doc *html.Node) float64 {
	for _, property := range []string{"product:price:amount", "og:price:amount"} {
		if amount := extractMetaProperty(doc, property); amount != "" {
			if price := clip.ParsePrice(amount); price > 0 {
				return price
			}
		}
	}
	if amount := extractItemProp(doc, "price"); amount != "" {
		return clip.ParsePrice(amount)
	}
	return 0
}

// extractImage reads the social-preview image, which on listing pages is the
// lead product photo.
func (s *Scraper) extractImage(doc *html.Node) string {
	if image := extractMetaProperty(doc, "og:image"); image != "" {
		return image
	}
	return extractMetaName(doc, "twitter:image")
}

// extractMetaProperty finds <meta property=... content=...>.
func extractMetaProperty(doc *html.Node, property string) string {
	return extractMetaAttr(doc, "property", property)
}

// extractMetaName finds <meta name=... content=...>.
func extractMetaName(doc *html.Node, name string) string {
	return extractMetaAttr(doc, "name", name)
}

func extractMetaAttr(doc *html.Node, attr, value string) string {
	var content string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var matched bool
			var c string
			for _, a := range n.Attr {
				if a.Key == attr && strings.EqualFold(a.Val, value) {
					matched = true
				}
				if a.Key == "content" {
					c = a.Val
				}
			}
			if matched && c != "" {
				content = strings.TrimSpace(c)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
			if content != "" {
				return
			}
		}
	}
	f(doc)
	return content
}

// extractItemProp finds an itemprop annotation, preferring its content
// attribute over element text.
func extractItemProp(doc *html.Node, name string) string {
	var value string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "itemprop" && strings.EqualFold(a.Val, name) {
					for _, b := range n.Attr {
						if b.Key == "content" && b.Val != "" {
							value = strings.TrimSpace(b.Val)
							return
						}
					}
					value = strings.TrimSpace(nodeText(n))
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
			if value != "" {
				return
			}
		}
	}
	f(doc)
	return value
}

// extractTextByTag returns the text content of the first matching element.
func extractTextByTag(doc *html.Node, tag string) string {
	var text string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			text = strings.TrimSpace(nodeText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
			if text != "" {
				return
			}
		}
	}
	f(doc)
	return text
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var f func(*html.Node)
	f = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return b.String()
}
