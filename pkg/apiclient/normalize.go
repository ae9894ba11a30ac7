package apiclient

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail trims, NFKC-normalizes and case-folds an email address so
// that visually identical inputs produce the same login.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(email))
}
