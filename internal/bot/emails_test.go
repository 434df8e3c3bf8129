package bot

import (
	"reflect"
	"testing"
)

func TestCompileEmailPatternRequiresDomain(t *testing.T) {
	if _, err := compileEmailPattern(""); err == nil {
		t.Error("expected error for empty domain")
	}
}

func TestCompileEmailPatternEscapesDomain(t *testing.T) {
	pattern, err := compileEmailPattern("example.org")
	if err != nil {
		t.Fatalf("compileEmailPattern: %v", err)
	}
	// The dot must not match arbitrary characters.
	if got := extractEmails(pattern, "jane@exampleXorg"); len(got) != 0 {
		t.Errorf("expected no matches for non-domain text, got %v", got)
	}
}

func TestExtractEmails(t *testing.T) {
	pattern, err := compileEmailPattern("example.org")
	if err != nil {
		t.Fatalf("compileEmailPattern: %v", err)
	}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no emails",
			text: "I could not find anyone matching that description.",
			want: nil,
		},
		{
			name: "single email",
			text: "You should talk to jane.doe@example.org about payroll.",
			want: []string{"jane.doe@example.org"},
		},
		{
			name: "foreign domain ignored",
			text: "Reach me at someone@other-company.com instead.",
			want: nil,
		},
		{
			name: "order preserved and duplicates dropped",
			text: "Contact max.mueller@example.org or anna.schmidt@example.org; max.mueller@example.org covers helpdesk.",
			want: []string{"max.mueller@example.org", "anna.schmidt@example.org"},
		},
		{
			name: "underscores and hyphens in local part",
			text: "try first_last-x@example.org",
			want: []string{"first_last-x@example.org"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := extractEmails(pattern, tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("extractEmails(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestLocalizedApologies(t *testing.T) {
	if got := inaudibleApology("de"); got != "Entschuldigung, ich kann dich nicht verstehen." {
		t.Errorf("unexpected German apology: %q", got)
	}
	if got := inaudibleApology("de-DE"); got != "Entschuldigung, ich kann dich nicht verstehen." {
		t.Errorf("unexpected regional German apology: %q", got)
	}
	if got := inaudibleApology("en"); got != "Sorry, I couldn't understand you." {
		t.Errorf("unexpected English apology: %q", got)
	}
	if got := errorApology(""); got != "An error occurred. Please try again." {
		t.Errorf("unexpected fallback apology: %q", got)
	}
	if got := errorApology("de"); got != "Ein Fehler ist aufgetreten. Bitte versuche es erneut." {
		t.Errorf("unexpected German error apology: %q", got)
	}
}
