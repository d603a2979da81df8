package ingest

import (
	"strconv"
	"strings"
	"time"
)

var currencyCleaner = strings.NewReplacer("$", "", ",", "", `"`, "", " ", "")

// parseCurrency strips dollar signs, thousands separators and quoting
// before parsing. Returns nil for blank or unparseable values.
func parseCurrency(s string) *float64 {
	return parseCleaned(currencyCleaner.Replace(s))
}

var numberCleaner = strings.NewReplacer(",", "", `"`, "", " ", "")

// parseNumber strips thousands separators and quoting before parsing
func parseNumber(s string) *float64 {
	return parseCleaned(numberCleaner.Replace(s))
}

func parseCleaned(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseBedroomLabel maps the bedroom spellings competition reports use
// onto counts. Four or more bedrooms all land in the 4 bucket.
func parseBedroomLabel(s string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "studio", "0":
		return 0, true
	case "1", "1 bed", "1br":
		return 1, true
	case "2", "2 beds", "2br":
		return 2, true
	case "3", "3 beds", "3br":
		return 3, true
	case "4", "4 beds", "4br", "4+":
		return 4, true
	}
	return 0, false
}

// parseBedroomCount parses rent roll bedroom cells, which are plain
// numbers rather than labels
func parseBedroomCount(s string) (int, bool) {
	v := parseNumber(s)
	if v == nil {
		return 0, false
	}
	n := int(*v)
	if n < 0 || n > 10 {
		return 0, false
	}
	return n, true
}

var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006", "2006-01-02 15:04:05"}

// parseDate handles the lease date formats seen in rent roll exports
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// slugID derives a stable unit ID from property and unit number, so
// re-imported rolls update existing rows instead of duplicating them
func slugID(property, unitNumber string) string {
	slug := strings.ToLower(strings.TrimSpace(property) + "-" + strings.TrimSpace(unitNumber))
	var b strings.Builder
	lastDash := false
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
