package services

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rental-radar/models"
	"rental-radar/utils"
)

// numPattern matches integers with optional space/period grouping separators
// ("12 500", "12.500", "12500").
const numPattern = `(?:\d{1,3}(?:[ .]\d{3})+|\d+)`

var (
	// priceTextRegexp captures "<number> kr" amounts in visible text
	priceTextRegexp = regexp.MustCompile(`(?i)(` + numPattern + `)\s*kr`)
	// areaRegexp captures floor areas like "54 m2", "54 m²" or "54 kvm"
	areaRegexp = regexp.MustCompile(`(?i)(` + numPattern + `)\s*(?:m2|m²|kvm)`)
	// bedroomTextRegexp captures "3 soverom" / "3 sov" mentions in free text
	bedroomTextRegexp = regexp.MustCompile(`(?i)\b(\d+)\s*(?:soverom|sov)\b`)

	groupingRegexp   = regexp.MustCompile(`[ .]`)
	firstDigitRegexp = regexp.MustCompile(`\d+`)
	amountRegexp     = regexp.MustCompile(numPattern)

	bedroomLabelRegexp = regexp.MustCompile(`(?i)^\s*soverom\s*$`)
	addressLabelRegexp = regexp.MustCompile(`(?i)^\s*adresse:?\s*$`)
	rentLabelRegexp    = regexp.MustCompile(`(?i)^\s*(?:leie|månedsleie|totalpris|rent|monthly rent|total price)\s*:?\s*$`)
)

// minTextPrice filters out ancillary charges (electricity, internet, fees)
// that the free-text price scan would otherwise pick up.
const minTextPrice = 3000

// Extractor turns one ad page's markup into a RawExtraction. It never fails
// on malformed markup: any field it cannot locate is simply left unset, and
// each field is resolved through an ordered chain of sources where the first
// hit wins.
type Extractor struct {
	logger *utils.Logger
}

// NewExtractor creates an Extractor with the given logger.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses the markup of a single ad page.
func (e *Extractor) Extract(markup string) *models.RawExtraction {
	raw := &models.RawExtraction{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Debug("[extract] Unparseable markup: %v", err)
		return raw
	}

	structured := decodeStructuredData(doc)

	raw.Title = extractTitle(doc)

	// Price chain: meta tags → structured offer data → labeled field → free text.
	raw.PriceAmount, raw.PriceContext = priceFromMeta(doc)
	if raw.PriceAmount == nil {
		raw.PriceAmount, raw.PriceContext = priceFromStructured(structured)
	}
	if raw.PriceAmount == nil {
		// Labeled values read like "12 500 kr per mnd"; take the number.
		raw.PriceAmount = parseAmount(amountRegexp.FindString(labeledValue(doc, rentLabelRegexp)))
	}

	addressFromStructured(structured, raw)
	if raw.Address == "" {
		raw.Address = labeledValue(doc, addressLabelRegexp)
	}

	raw.Bedrooms = bedroomsFromLabel(doc)

	// Everything below works on visible text only.
	doc.Find("script, style, noscript").Remove()
	text := collapseWhitespace(doc.Text())

	if raw.PriceAmount == nil {
		raw.PriceAmount = priceFromText(text)
		raw.PriceContext = text
	}
	if raw.PriceContext == "" {
		// The billing period is rarely stated next to a meta price, so fall
		// back to scanning the whole page for period keywords.
		raw.PriceContext = text
	}

	if m := areaRegexp.FindStringSubmatch(text); m != nil {
		raw.FloorAreaSqm = parseAmount(m[1])
	}
	if raw.Bedrooms == nil {
		if m := bedroomTextRegexp.FindStringSubmatch(text); m != nil {
			raw.Bedrooms = parseAmount(m[1])
		}
	}

	return raw
}

// extractTitle takes the page's primary heading, overridden by og:title when
// the heading is missing or is the generic gallery caption.
func extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("h1, h2").First().Text())
	og := strings.TrimSpace(metaContent(doc, `meta[property="og:title"]`))
	if og != "" && (title == "" || strings.Contains(strings.ToLower(title), "bildegalleri")) {
		title = og
	}
	return collapseWhitespace(title)
}

// priceFromMeta checks machine-readable price attributes in priority order.
func priceFromMeta(doc *goquery.Document) (*int, string) {
	for _, sel := range []string{
		`meta[property="product:price:amount"]`,
		`meta[itemprop="price"]`,
		`meta[property="og:price:amount"]`,
	} {
		if amount := parseAmount(metaContent(doc, sel)); amount != nil {
			return amount, ""
		}
	}
	return nil, ""
}

// decodeStructuredData collects every parseable JSON-LD object on the page,
// flattening top-level arrays one level.
func decodeStructuredData(doc *goquery.Document) []map[string]interface{} {
	var items []map[string]interface{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		switch v := data.(type) {
		case map[string]interface{}:
			items = append(items, v)
		case []interface{}:
			for _, el := range v {
				if m, ok := el.(map[string]interface{}); ok {
					items = append(items, m)
				}
			}
		}
	})
	return items
}

// priceFromStructured looks for an offer price in the structured listing
// data. The offers object is sometimes nested one level in an array. The
// offer fragment itself is returned as period context since it often names
// the billing period.
func priceFromStructured(items []map[string]interface{}) (*int, string) {
	for _, item := range items {
		offers, ok := item["offers"]
		if !ok {
			continue
		}
		if list, isList := offers.([]interface{}); isList {
			if len(list) == 0 {
				continue
			}
			offers = list[0]
		}
		offer, isMap := offers.(map[string]interface{})
		if !isMap {
			continue
		}

		p := offer["price"]
		if p == nil {
			if ps, ok := offer["priceSpecification"].(map[string]interface{}); ok {
				p = ps["price"]
			}
		}
		if amount := parseAmountValue(p); amount != nil {
			ctx := ""
			if encoded, err := json.Marshal(offer); err == nil {
				ctx = strings.ToLower(string(encoded))
			}
			return amount, ctx
		}
	}
	return nil, ""
}

// addressFromStructured scans structured-data blocks until one yields a
// non-empty street address. Locality falls back to region for the city field.
func addressFromStructured(items []map[string]interface{}, raw *models.RawExtraction) {
	for _, item := range items {
		addr, ok := item["address"].(map[string]interface{})
		if !ok {
			continue
		}
		if raw.Address == "" {
			raw.Address = stringField(addr, "streetAddress")
		}
		if raw.City == "" {
			raw.City = stringField(addr, "addressLocality")
			if raw.City == "" {
				raw.City = stringField(addr, "addressRegion")
			}
		}
		if raw.PostalCode == "" {
			raw.PostalCode = stringField(addr, "postalCode")
		}
		if raw.Region == "" {
			raw.Region = stringField(addr, "addressRegion")
		}
		if raw.Address != "" {
			return
		}
	}
}

// bedroomsFromLabel resolves a definition-list style "Soverom" label and
// reads the first number from the following sibling element.
func bedroomsFromLabel(doc *goquery.Document) *int {
	val := labeledValue(doc, bedroomLabelRegexp)
	if m := firstDigitRegexp.FindString(val); m != "" {
		return parseAmount(m)
	}
	return nil
}

// priceFromText scans visible text for "<number> kr" amounts, drops small
// ancillary charges and keeps the largest remaining candidate.
func priceFromText(text string) *int {
	var best *int
	for _, m := range priceTextRegexp.FindAllStringSubmatch(text, -1) {
		amount := parseAmount(m[1])
		if amount == nil || *amount < minTextPrice {
			continue
		}
		if best == nil || *amount > *best {
			best = amount
		}
	}
	return best
}

// labeledValue finds an element whose own text matches the label exactly and
// returns the trimmed text of its next sibling.
func labeledValue(doc *goquery.Document, label *regexp.Regexp) string {
	var out string
	doc.Find("dt, th, label, strong, b, span, p, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !label.MatchString(s.Text()) {
			return true
		}
		if v := collapseWhitespace(s.Next().Text()); v != "" {
			out = v
			return false
		}
		return true
	})
	return out
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return content
}

// parseAmount strips grouping separators and converts to an integer. A parse
// failure yields nil, never an error.
func parseAmount(s string) *int {
	s = groupingRegexp.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// parseAmountValue handles the loosely typed values found in JSON-LD, where
// a price may be a number or a string.
func parseAmountValue(v interface{}) *int {
	switch val := v.(type) {
	case float64:
		n := int(val)
		return &n
	case string:
		return parseAmount(val)
	default:
		return nil
	}
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// collapseWhitespace trims and reduces internal whitespace runs to single
// spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
