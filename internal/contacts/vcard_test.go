package contacts

import (
	"strings"
	"testing"

	"github.com/jkonratt/centaur/internal/models"
)

func TestVCard(t *testing.T) {
	c := models.Contact{
		Name:             "Jane Doe",
		Department:       "HR",
		Position:         "Manager",
		Responsibilities: "Payroll, Onboarding",
		Email:            "jane.doe@example.org",
		Phone:            "+49 30 111",
	}
	card := string(VCard(c))

	if !strings.HasPrefix(card, "BEGIN:VCARD\r\nVERSION:3.0\r\n") {
		t.Errorf("missing vCard preamble: %q", card)
	}
	if !strings.HasSuffix(card, "END:VCARD\r\n") {
		t.Errorf("missing vCard terminator: %q", card)
	}
	for _, want := range []string{
		"FN:Jane Doe\r\n",
		"ORG:HR\r\n",
		"TITLE:Manager\r\n",
		"EMAIL:jane.doe@example.org\r\n",
		"TEL:+49 30 111\r\n",
		"NOTE:Payroll\\, Onboarding\r\n",
	} {
		if !strings.Contains(card, want) {
			t.Errorf("vCard missing %q:\n%s", want, card)
		}
	}
}

func TestVCardOmitsEmptyFields(t *testing.T) {
	card := string(VCard(models.Contact{Name: "Jane Doe"}))
	for _, absent := range []string{"ORG:", "TITLE:", "EMAIL:", "TEL:", "NOTE:"} {
		if strings.Contains(card, absent) {
			t.Errorf("vCard should omit empty field %q:\n%s", absent, card)
		}
	}
}
