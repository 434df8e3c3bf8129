package contacts

import (
	"fmt"
	"strings"

	"github.com/jkonratt/centaur/internal/models"
)

// VCard renders a contact as a VCARD 3.0 document suitable for sending as a
// document attachment. Empty fields are omitted.
func VCard(c models.Contact) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCARD\r\n")
	b.WriteString("VERSION:3.0\r\n")
	writeVCardLine(&b, "FN", c.Name)
	writeVCardLine(&b, "ORG", c.Department)
	writeVCardLine(&b, "TITLE", c.Position)
	writeVCardLine(&b, "EMAIL", c.Email)
	writeVCardLine(&b, "TEL", c.Phone)
	writeVCardLine(&b, "NOTE", c.Responsibilities)
	b.WriteString("END:VCARD\r\n")
	return []byte(b.String())
}

func writeVCardLine(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	// Per RFC 2426, commas and semicolons in values must be escaped.
	escaped := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n").Replace(value)
	fmt.Fprintf(b, "%s:%s\r\n", key, escaped)
}
