package bot

import (
	"fmt"
	"regexp"
)

// compileEmailPattern builds the matcher for addresses under the
// organizational domain. Only domain-scoped addresses count as contact
// matches; anything else in a reply is plain text.
func compileEmailPattern(domain string) (*regexp.Regexp, error) {
	if domain == "" {
		return nil, fmt.Errorf("contact email domain not set")
	}
	return regexp.Compile(`[\w._-]+@` + regexp.QuoteMeta(domain))
}

// extractEmails returns all domain-scoped email addresses in text, in order
// of appearance and de-duplicated.
func extractEmails(pattern *regexp.Regexp, text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, email := range pattern.FindAllString(text, -1) {
		if seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out
}
