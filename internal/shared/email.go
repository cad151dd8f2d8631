package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var emailFolder = cases.Lower(language.Und)

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree on what a duplicate is.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}
