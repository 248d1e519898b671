package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-reviews/markup"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/gocolly/colly/v2"
)

// Field names used for fallback accounting.
const (
	fieldName   = "name"
	fieldRating = "rating"
	fieldText   = "text"
	fieldDate   = "date"
)

// ExtractReviews maps every review card in a panel snapshot to a Review, in
// document order. Each field falls back independently, and the returned map
// counts fallbacks per field.
func ExtractReviews(pageURL, panelHTML string) ([]*models.Review, map[string]int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(panelHTML))
	if err != nil {
		return nil, nil, fmt.Errorf("parse panel snapshot: %w", err)
	}
	// Rendered text keeps line breaks; goquery's Text() drops <br>.
	doc.Find("br").ReplaceWithHtml("\n")

	// The element's request only serves relative-link resolution. A maps URL
	// with a literal '%' fails url.Parse but is still a valid target.
	requestURL, err := url.Parse(pageURL)
	if err != nil {
		requestURL = &url.URL{Opaque: pageURL}
	}
	resp := &colly.Response{
		Body:    []byte(panelHTML),
		Ctx:     colly.NewContext(),
		Request: &colly.Request{URL: requestURL},
	}

	var reviews []*models.Review
	fallbacks := make(map[string]int)
	doc.Find(markup.CardSelector).Each(func(i int, s *goquery.Selection) {
		e := colly.NewHTMLElementFromSelectionNode(resp, s, s.Get(0), i)
		review, missing := extractReview(e)
		for _, field := range missing {
			fallbacks[field]++
		}
		reviews = append(reviews, review)
	})

	return reviews, fallbacks, nil
}

func extractReview(e *colly.HTMLElement) (*models.Review, []string) {
	var missing []string
	review := &models.Review{ReviewID: strings.TrimSpace(e.Attr(markup.ReviewIDAttr))}

	if name, ok := childText(e, markup.NameSelector); ok {
		review.Name = name
	} else {
		review.Name = models.FallbackName
		missing = append(missing, fieldName)
	}

	if label := e.ChildAttr(markup.RatingSelector, markup.RatingAttr); label != "" {
		review.Rating = parser.RatingFromLabel(label)
	} else {
		review.Rating = models.FallbackRating
		missing = append(missing, fieldRating)
	}

	if text, ok := childText(e, markup.TextSelector); ok {
		review.Text = parser.NormalizeText(text)
	} else {
		review.Text = models.FallbackText
		missing = append(missing, fieldText)
	}

	if date, ok := childText(e, markup.DateSelector); ok {
		review.Date = date
	} else {
		missing = append(missing, fieldDate)
	}

	return review, missing
}

// childText returns the trimmed text of the first element matching
// selector. ChildText would join every match, which pulls in the owner's
// reply when it reuses the review body's class.
func childText(e *colly.HTMLElement, selector string) (string, bool) {
	texts := e.ChildTexts(selector)
	if len(texts) == 0 {
		return "", false
	}
	return texts[0], true
}
