// CLAUDE:SUMMARY Renewable capacity adapter scraping the IRENA statistics page with goquery.
package source

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/worldpulse/fact"
	"github.com/hazyhaar/worldpulse/horosafe"
)

// DefaultRenewablesURL is the IRENA renewable capacity statistics page.
const DefaultRenewablesURL = "https://www.irena.org/Data/View-data-by-topic/Capacity-and-Generation/Statistics-Time-Series"

var yearRE = regexp.MustCompile(`\b(20\d{2})\b`)

// RenewableCapacity reports installed renewable power capacity in
// gigawatts by region, scraped from IRENA's published statistics table.
// The expected markup is a table whose rows are "region, capacity (MW)";
// a "World" row supplies the total.
type RenewableCapacity struct {
	client *Client
	url    string
}

// NewRenewableCapacity builds the adapter. An empty url selects the default.
func NewRenewableCapacity(client *Client, url string) *RenewableCapacity {
	if url == "" {
		url = DefaultRenewablesURL
	}
	return &RenewableCapacity{client: client, url: url}
}

func (a *RenewableCapacity) Slug() string { return "renewable-capacity" }

func (a *RenewableCapacity) Fetch(ctx context.Context, _ Hint) (*fact.Payload, error) {
	body, err := a.client.GetBytes(ctx, a.url, horosafe.MaxResponseBody*8)
	if err != nil {
		return nil, err
	}
	return a.normalize(body)
}

func (a *RenewableCapacity) normalize(body []byte) (*fact.Payload, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var (
		worldMW    float64
		categories []fact.Category
	)
	doc.Find("table").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		name := strings.TrimSpace(cells.Eq(0).Text())
		value, err := parseNumber(cells.Eq(1).Text())
		if err != nil || value <= 0 {
			return
		}
		if strings.EqualFold(name, "World") {
			worldMW = value
			return
		}
		categories = append(categories, fact.Category{
			Key:   slugify(name),
			Label: name,
			Value: value / 1000, // MW -> GW
		})
	})

	if worldMW == 0 {
		return nil, fmt.Errorf("%w: capacity table has no World row", ErrMalformedResponse)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: capacity table has no region rows", ErrMalformedResponse)
	}

	total := worldMW / 1000
	categories = fact.FoldRemainder(categories, total, "rest", "Other regions")

	notes := "IRENA renewable capacity statistics"
	if m := yearRE.FindString(doc.Find("caption, h1, h2, title").Text()); m != "" {
		notes = fmt.Sprintf("%s, %s", notes, m)
	}

	payload := &fact.Payload{
		UnitLabel:  "GW installed",
		DotValue:   100,
		Total:      total,
		Categories: categories,
		Notes:      notes,
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return payload, nil
}

// parseNumber strips thousands separators and surrounding junk from a
// table cell before parsing.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return strconv.ParseFloat(s, 64)
}

func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
