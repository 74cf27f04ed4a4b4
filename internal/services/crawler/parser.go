package crawler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// Selectors for the WooCommerce storefront the book source runs on
const (
	ResultsSelector        = ".products"
	productSelector        = ".product-inner"
	titleLinkSelector      = ".product-summary .woocommerce-loop-product__title a"
	priceSelector          = ".product-summary .price"
	currentAmountSelector  = "ins .woocommerce-Price-amount"
	originalAmountSelector = "del .woocommerce-Price-amount"
	amountSelector         = ".woocommerce-Price-amount"
	shortDescSelector      = ".product-summary .woocommerce-product-details__short-description"
	detailSelector         = ".woocommerce-tabs--description-content p"
)

// SearchURL builds the product search URL for query on the given results page (1-based)
func SearchURL(baseURL, query string, page int) string {
	base := strings.TrimRight(baseURL, "/")
	q := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	if page <= 1 {
		return fmt.Sprintf("%s/?s=%s&post_type=product", base, q)
	}
	return fmt.Sprintf("%s/page/%d/?s=%s&post_type=product", base, page, q)
}

// ParseSearchPage extracts the books listed on a search results page.
// Entries without a title or a derivable author are skipped.
func ParseSearchPage(html, pageURL string) ([]models.Book, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	base, _ := url.Parse(pageURL)

	books := make([]models.Book, 0)
	doc.Find(productSelector).Each(func(i int, s *goquery.Selection) {
		link := s.Find(titleLinkSelector).First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		productURL := resolveURL(base, strings.TrimSpace(href))

		author := AuthorFromURL(productURL)
		if title == "" || author == "" {
			return
		}

		price := s.Find(priceSelector).First()
		current := price.Find(currentAmountSelector).First()
		if current.Length() == 0 {
			current = price.Find(amountSelector).First()
		}

		book := models.Book{
			Title:        title,
			Author:       author,
			CurrentPrice: ParsePrice(current.Text()),
			ProductURL:   productURL,
		}

		if original := price.Find(originalAmountSelector).First(); original.Length() > 0 {
			book.OriginalPrice = models.Float64(ParsePrice(original.Text()))
		}

		book.Description = strings.TrimSpace(s.Find(shortDescSelector).First().Text())
		if book.Description == "" {
			book.Description = "Book: " + title
		}

		books = append(books, book)
	})

	return books, nil
}

// ParseDetailPage returns the first sentence of a product page's description, or "" if it has none
func ParseDetailPage(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse detail page: %w", err)
	}

	paragraph := doc.Find(detailSelector).First()
	if paragraph.Length() == 0 {
		return "", nil
	}

	inner, err := paragraph.Html()
	if err != nil {
		return "", fmt.Errorf("failed to read description: %w", err)
	}

	text, err := descriptionConverter().ConvertString(inner)
	if err != nil {
		return "", fmt.Errorf("failed to convert description: %w", err)
	}

	return FirstSentence(text), nil
}

// descriptionConverter renders description markup as plain prose: links and emphasis keep only their text
func descriptionConverter() *md.Converter {
	conv := md.NewConverter("", true, &md.Options{EscapeMode: "disabled"})
	conv.AddRules(md.Rule{
		Filter: []string{"a", "em", "i", "strong", "b", "span"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			return md.String(content)
		},
	})
	return conv
}

// FirstSentence returns the text up to the first period, trimmed and re-terminated with ".".
// Blank text yields "".
func FirstSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	first, _, _ := strings.Cut(text, ".")
	return strings.TrimSpace(first) + "."
}

// AuthorFromURL derives the author from a product URL slug such as
// https://example.com/product/the-martian-andy-weir/ -> "the martian andy".
// The slug is the second-to-last path segment and its final hyphen part is dropped.
func AuthorFromURL(productURL string) string {
	parts := strings.Split(productURL, "/")
	if len(parts) < 2 {
		return ""
	}
	slug := parts[len(parts)-2]
	words := strings.Split(slug, "-")
	if len(words) < 2 {
		return ""
	}
	return strings.TrimSpace(strings.Join(words[:len(words)-1], " "))
}

// ParsePrice converts a displayed amount like "$1,299.95" to a number. Unparseable text yields 0.
func ParsePrice(text string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(text))
	value, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0
	}
	return value
}

func resolveURL(base *url.URL, href string) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
