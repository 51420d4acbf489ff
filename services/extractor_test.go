package services

import (
	"testing"

	"rental-radar/utils"
)

const structuredAdPage = `<!DOCTYPE html>
<html>
<head>
<title>Til leie</title>
<meta property="og:title" content="Lys 2-roms ved Storgata">
<script type="application/ld+json">
{
  "@type": "Product",
  "name": "Lys 2-roms ved Storgata",
  "offers": {
    "price": "14 500",
    "priceCurrency": "NOK",
    "description": "Leie per måned"
  },
  "address": {
    "streetAddress": "Storgata 1",
    "postalCode": "0155",
    "addressLocality": "Oslo",
    "addressRegion": "Oslo"
  }
}
</script>
</head>
<body>
<h1>Lys 2-roms ved Storgata</h1>
<dl>
  <dt>Soverom</dt><dd>1</dd>
  <dt>Primærrom</dt><dd>54 m²</dd>
</dl>
<p>Depositum 29 000 kr. Strøm 450 kr inkludert.</p>
</body>
</html>`

func TestExtractStructuredData(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	raw := e.Extract(structuredAdPage)

	if raw.PriceAmount == nil || *raw.PriceAmount != 14500 {
		t.Errorf("PriceAmount: got %v, want 14500 (offer beats free-text deposit)", raw.PriceAmount)
	}
	if raw.Title != "Lys 2-roms ved Storgata" {
		t.Errorf("Title: got %q", raw.Title)
	}
	if raw.Address != "Storgata 1" {
		t.Errorf("Address: got %q, want Storgata 1", raw.Address)
	}
	if raw.PostalCode != "0155" {
		t.Errorf("PostalCode: got %q, want 0155", raw.PostalCode)
	}
	if raw.City != "Oslo" {
		t.Errorf("City: got %q, want Oslo", raw.City)
	}
	if raw.FloorAreaSqm == nil || *raw.FloorAreaSqm != 54 {
		t.Errorf("FloorAreaSqm: got %v, want 54", raw.FloorAreaSqm)
	}
	if raw.Bedrooms == nil || *raw.Bedrooms != 1 {
		t.Errorf("Bedrooms: got %v, want 1", raw.Bedrooms)
	}

	// The offer fragment names the billing period, so normalization keeps
	// the amount unchanged.
	monthly := MonthlyPrice(raw.PriceAmount, raw.PriceContext)
	if monthly == nil || *monthly != 14500 {
		t.Errorf("normalized price: got %v, want 14500", monthly)
	}
}

func TestExtractMetaPriceWins(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	raw := e.Extract(`<html><head>
<meta property="product:price:amount" content="16000">
</head><body><h1>Leilighet</h1><p>Depositum 48 000 kr</p></body></html>`)

	if raw.PriceAmount == nil || *raw.PriceAmount != 16000 {
		t.Errorf("PriceAmount: got %v, want 16000 from meta tag", raw.PriceAmount)
	}
}

func TestExtractLabeledRentField(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	raw := e.Extract(`<html><body>
<h1>Rekkehus til leie</h1>
<dl><dt>Månedsleie</dt><dd>12 500 kr</dd></dl>
</body></html>`)

	if raw.PriceAmount == nil || *raw.PriceAmount != 12500 {
		t.Errorf("PriceAmount: got %v, want 12500 from labeled field", raw.PriceAmount)
	}
}

func TestExtractFreeTextPriceTakesMaxAboveThreshold(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	raw := e.Extract(`<html><body>
<h1>Hybel sentralt</h1>
<p>Leie 9 500 kr per mnd. Strøm ca 450 kr. Internett 599 kr.</p>
</body></html>`)

	if raw.PriceAmount == nil || *raw.PriceAmount != 9500 {
		t.Errorf("PriceAmount: got %v, want 9500 (small charges filtered)", raw.PriceAmount)
	}
}

func TestExtractTitleGalleryPlaceholderOverridden(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	raw := e.Extract(`<html><head>
<meta property="og:title" content="Fin leilighet i Bergen">
</head><body><h1>Bildegalleri</h1></body></html>`)

	if raw.Title != "Fin leilighet i Bergen" {
		t.Errorf("Title: got %q, want og:title override", raw.Title)
	}
}

func TestExtractBedroomsFromFreeText(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	raw := e.Extract(`<html><body>
<h1>Stor leilighet</h1><p>Romslig med 3 soverom og balkong.</p>
</body></html>`)

	if raw.Bedrooms == nil || *raw.Bedrooms != 3 {
		t.Errorf("Bedrooms: got %v, want 3 from free text", raw.Bedrooms)
	}
}

func TestExtractAddressLabelFallback(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	raw := e.Extract(`<html><body>
<h1>Leilighet</h1>
<div><span>Adresse:</span><span>Kirkegata 5, 0153 Oslo</span></div>
</body></html>`)

	if raw.Address != "Kirkegata 5, 0153 Oslo" {
		t.Errorf("Address: got %q, want labeled fallback value", raw.Address)
	}
}

func TestExtractNestedOfferArray(t *testing.T) {
	e := NewExtractor(utils.NewLogger())
	raw := e.Extract(`<html><head>
<script type="application/ld+json">
[{"@type": "Product", "offers": [{"priceSpecification": {"price": 11000}}]}]
</script>
</head><body><h1>Leilighet</h1></body></html>`)

	if raw.PriceAmount == nil || *raw.PriceAmount != 11000 {
		t.Errorf("PriceAmount: got %v, want 11000 from nested offer array", raw.PriceAmount)
	}
}

func TestExtractMalformedMarkup(t *testing.T) {
	e := NewExtractor(utils.NewLogger())

	for _, markup := range []string{
		"",
		"<<<not html>>>",
		`<html><script type="application/ld+json">{broken json`,
		"plain text, no structure at all",
	} {
		raw := e.Extract(markup)
		if raw == nil {
			t.Fatalf("Extract(%q) returned nil", markup)
		}
		if raw.PriceAmount != nil {
			t.Errorf("Extract(%q): unexpected price %d", markup, *raw.PriceAmount)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"12500", intPtr(12500)},
		{"12 500", intPtr(12500)},
		{"12.500", intPtr(12500)},
		{" 9 000 ", intPtr(9000)},
		{"", nil},
		{"ikke oppgitt", nil},
	}

	for _, tt := range tests {
		got := parseAmount(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseAmount(%q) = %d; want nil", tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseAmount(%q) = %v; want %d", tt.in, got, *tt.want)
		}
	}
}
