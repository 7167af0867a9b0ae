package address

import (
	"fmt"
	"regexp"
	"strings"
)

// Role tags a raw address reference as shipping or billing.
type Role string

const (
	RoleShipping Role = "shipping"
	RoleBilling  Role = "billing"
)

// DefaultCountry is the literal applied when the exporter omits or spells
// out the country. The exports this parser handles are US-only.
const DefaultCountry = "United States"

// sentinel value the exporter writes where an address is unknown
const notAvailable = "Not Available"

// Components is a parsed postal address. Line1, City, State and PostalCode
// are always non-empty for a successful parse; Line2 may be empty.
type Components struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// IdentityKey returns the canonical dedup key for an address. Two parses
// sharing a key are the same logical address regardless of line2/country.
func (c Components) IdentityKey() string {
	return strings.ToUpper(c.Line1) + "|" + c.City + "|" + c.State + "|" + c.PostalCode
}

// Parser converts one raw address string into structured components.
// The boolean result is false for expected failures (blank input, the
// "Not Available" sentinel, too few tokens); a failed parse never panics.
type Parser interface {
	Parse(raw string, role Role) (Components, bool)
}

// NewParser returns the parser for the named strategy: "space" for the
// space-delimited export format (default) or "comma" for the
// comma-delimited variant.
func NewParser(strategy string) (Parser, error) {
	switch strategy {
	case "", "space":
		return SpaceDelimited{}, nil
	case "comma":
		return CommaDelimited{}, nil
	}
	return nil, fmt.Errorf("unknown parser strategy %q", strategy)
}

var rolePrefix = regexp.MustCompile(`(?i)^(shipping|billing)\s+address:\s*`)

// streetSuffixes are the abbreviations that end the street line in the
// space-delimited export format.
var streetSuffixes = map[string]bool{
	"DR": true, "ST": true, "AVE": true, "BLVD": true,
	"RD": true, "LN": true, "CT": true, "WAY": true,
}

// SpaceDelimited parses the fixed single-line export format by consuming
// tokens right to left: country, postal code, state, city, then street.
//
// Known limitations, kept deliberately because the export format is fixed:
// multi-word cities mis-parse (the token before the state is taken as the
// whole city), and the street-suffix scan keeps the LAST matching token, so
// "100 ST ANDREWS AVE APT 2" splits after AVE but "100 ST ANDREWS" splits
// after ST.
type SpaceDelimited struct{}

func (SpaceDelimited) Parse(raw string, role Role) (Components, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == notAvailable {
		return Components{}, false
	}
	raw = rolePrefix.ReplaceAllString(raw, "")

	parts := strings.Fields(raw)

	// Trailing "United States" is consumed; any other country spelling is
	// not produced by the exporter, so the default is applied regardless.
	if len(parts) >= 2 && parts[len(parts)-2] == "United" && parts[len(parts)-1] == "States" {
		parts = parts[:len(parts)-2]
	}

	// Need at least one street token plus city, state and postal code.
	if len(parts) < 4 {
		return Components{}, false
	}

	postal := parts[len(parts)-1]
	if i := strings.Index(postal, "-"); i >= 0 {
		postal = postal[:i] // ZIP+4 truncation
	}
	parts = parts[:len(parts)-1]

	state := parts[len(parts)-1]
	parts = parts[:len(parts)-1]

	city := parts[len(parts)-1]
	parts = parts[:len(parts)-1]

	// Split the street region after the last street-suffix token.
	splitIdx := 0
	for i, word := range parts {
		if streetSuffixes[word] {
			splitIdx = i + 1
		}
	}

	var line1, line2 string
	if splitIdx > 0 {
		line1 = strings.Join(parts[:splitIdx], " ")
		line2 = strings.Join(parts[splitIdx:], " ")
	} else {
		line1 = strings.Join(parts, " ")
	}

	return Components{
		Line1:      line1,
		Line2:      line2,
		City:       city,
		State:      state,
		PostalCode: postal,
		Country:    DefaultCountry,
	}, true
}

// CommaDelimited parses the comma-separated variant of the export:
// "street, [unit,] city, ST zip". Selected via configuration for files
// produced by the older export pipeline.
type CommaDelimited struct{}

func (CommaDelimited) Parse(raw string, role Role) (Components, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == notAvailable {
		return Components{}, false
	}
	raw = rolePrefix.ReplaceAllString(raw, "")

	var parts []string
	for _, p := range strings.Split(raw, ",") {
		parts = append(parts, strings.TrimSpace(p))
	}
	if len(parts) < 3 {
		return Components{}, false
	}

	line1 := parts[0]
	var line2 string
	if len(parts) > 3 {
		line2 = parts[1]
	}
	city := parts[len(parts)-2]

	stateZip := strings.Fields(parts[len(parts)-1])
	if len(stateZip) < 2 {
		return Components{}, false
	}
	state := stateZip[0]
	postal := stateZip[1]
	if i := strings.Index(postal, "-"); i >= 0 {
		postal = postal[:i]
	}

	if line1 == "" || city == "" {
		return Components{}, false
	}

	return Components{
		Line1:      line1,
		Line2:      line2,
		City:       city,
		State:      state,
		PostalCode: postal,
		Country:    DefaultCountry,
	}, true
}
