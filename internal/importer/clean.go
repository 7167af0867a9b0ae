package importer

import (
	"strconv"
	"strings"
	"time"
)

// sentinel the export writes in place of missing values
const notAvailable = "Not Available"

func isMissing(s string) bool {
	return s == "" || s == notAvailable
}

// cleanMoney strips currency symbols, thousands separators and stray quotes
// from a monetary string. Unparseable values default to 0.0, matching the
// export's treatment of free promotions and gift balances.
func cleanMoney(s string) float64 {
	if isMissing(s) {
		return 0.0
	}
	r := strings.NewReplacer("$", "", ",", "", `"`, "", "'", "")
	f, err := strconv.ParseFloat(strings.TrimSpace(r.Replace(s)), 64)
	if err != nil {
		return 0.0
	}
	return f
}

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// parseDate parses the export's date spellings, returning nil for missing
// or unparseable values so the column lands as SQL NULL.
func parseDate(s string) *time.Time {
	if isMissing(s) {
		return nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// mapShipmentStatus maps export values onto the shipment_status_enum.
// Anything unrecognized is Pending.
func mapShipmentStatus(status string) string {
	switch status {
	case "Shipped", "Delivered", "Pending":
		return status
	}
	return "Pending"
}

// mapReturnStatus maps export values onto the return_status_enum.
func mapReturnStatus(status string) string {
	switch strings.TrimSpace(status) {
	case "Completed", "Complete", "Returned":
		return "Completed"
	case "Rejected":
		return "Rejected"
	}
	return "Pending"
}

// clampQuantity parses a quantity, never returning less than 1.
func clampQuantity(s string) int {
	qty, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || qty < 1 {
		return 1
	}
	return qty
}

// parseYesNo converts the export's Yes/No flags to a boolean.
func parseYesNo(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

// nullIfMissing maps empty and sentinel values to SQL NULL.
func nullIfMissing(s string) interface{} {
	if isMissing(s) {
		return nil
	}
	return s
}
