package contacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureCSV = `name;department;position;responsibilities;email;phone;location;description;programs
Jane Doe;HR;Manager;Payroll, Onboarding;jane.doe@example.org;+49 30 111;Berlin;HR lead;Mentoring, Buddy
John Smith;HR;Specialist;Recruiting, Onboarding;john.smith@example.org;+49 30 222;Berlin;Recruiter;
Erika Mustermann;IT;Manager;Infrastructure, Security;erika.mustermann@example.org;+49 30 333;Munich;Head of IT;Rollout
Max Mueller;IT;Specialist;Helpdesk, Hardware;max.mueller@example.org;+49 30 444;Munich;Support desk;Rollout
Anna Schmidt;IT;Specialist;Software licensing;anna.schmidt@example.org;+49 30 555;Berlin;Licensing;
Peter Weber;HR;Specialist;Payroll;peter.weber@example.org;+49 30 666;Hamburg;Payroll clerk;Mentoring
`

func fixtureStore(t *testing.T) *Store {
	t.Helper()
	s, err := Parse(strings.NewReader(fixtureCSV))
	if err != nil {
		t.Fatalf("Parse fixture: %v", err)
	}
	return s
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 6 {
		t.Errorf("expected 6 contacts, got %d", s.Len())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseNormalizesMissingProgramsColumn(t *testing.T) {
	// Trailing programs column absent entirely: 8-field rows are accepted.
	data := "name;department;position;responsibilities;email;phone;location;description\n" +
		"Jane Doe;HR;Manager;Payroll;jane.doe@example.org;+49 30 111;Berlin;HR lead\n"
	s, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 contact, got %d", s.Len())
	}
	if got := s.All()[0].Programs; got != "" {
		t.Errorf("expected empty programs, got %q", got)
	}
}

func TestQueryEmptyFiltersReturnsAll(t *testing.T) {
	s := fixtureStore(t)
	got := s.Query(Filters{})
	if len(got) != 6 {
		t.Errorf("expected all 6 contacts, got %d", len(got))
	}
}

func TestQueryProgressiveNarrowing(t *testing.T) {
	s := fixtureStore(t)

	got := s.Query(Filters{Department: "IT"})
	if len(got) != 3 {
		t.Fatalf("department filter: expected 3, got %d", len(got))
	}

	got = s.Query(Filters{Department: "IT", Position: "Specialist"})
	if len(got) != 2 {
		t.Fatalf("department+position filter: expected 2, got %d", len(got))
	}
	for _, c := range got {
		if c.Department != "IT" || c.Position != "Specialist" {
			t.Errorf("unexpected contact in result: %+v", c)
		}
	}
}

func TestQueryZeroMatchFilterIsSkipped(t *testing.T) {
	s := fixtureStore(t)

	// No IT specialist sits in Hamburg; the location filter matches nothing
	// and must leave the pre-location subset intact instead of zeroing it.
	got := s.Query(Filters{Department: "IT", Position: "Specialist", Location: "Hamburg"})
	if len(got) != 2 {
		t.Fatalf("expected fallback to pre-location subset of 2, got %d", len(got))
	}
}

func TestQueryResponsibilitySubstring(t *testing.T) {
	s := fixtureStore(t)
	got := s.Query(Filters{Responsibility: "onboarding"})
	if len(got) != 2 {
		t.Fatalf("expected 2 onboarding contacts, got %d", len(got))
	}
}

func TestQueryProgramToleratesAbsentValues(t *testing.T) {
	s := fixtureStore(t)
	got := s.Query(Filters{Program: "Rollout"})
	if len(got) != 2 {
		t.Fatalf("expected 2 Rollout contacts, got %d", len(got))
	}
}

func TestQueryDoesNotMutateStore(t *testing.T) {
	s := fixtureStore(t)
	_ = s.Query(Filters{Department: "IT"})
	if s.Len() != 6 {
		t.Errorf("store mutated by query: len=%d", s.Len())
	}
}

func TestFindByEmailRoundTrip(t *testing.T) {
	s := fixtureStore(t)
	for _, c := range s.All() {
		found := s.FindByEmail(strings.ToUpper(c.Email))
		if found == nil {
			t.Errorf("FindByEmail(%q) returned nil", c.Email)
			continue
		}
		if !strings.Contains(strings.ToLower(found.Email), strings.ToLower(c.Email)) {
			t.Errorf("FindByEmail(%q) returned %q", c.Email, found.Email)
		}
	}
}

func TestFindByEmailAbsent(t *testing.T) {
	s := fixtureStore(t)
	if found := s.FindByEmail("nobody@example.org"); found != nil {
		t.Errorf("expected nil, got %+v", found)
	}
	if found := s.FindByEmail(""); found != nil {
		t.Errorf("expected nil for empty query, got %+v", found)
	}
}

func TestDistinctEnumerations(t *testing.T) {
	s := fixtureStore(t)

	deps := s.Departments()
	if len(deps) != 2 || deps[0] != "HR" || deps[1] != "IT" {
		t.Errorf("unexpected departments: %v", deps)
	}

	positions := s.Positions()
	if len(positions) != 2 {
		t.Errorf("expected 2 distinct positions, got %v", positions)
	}

	locations := s.Locations()
	if len(locations) != 3 {
		t.Errorf("expected 3 distinct locations, got %v", locations)
	}

	programs := s.Programs()
	want := map[string]bool{"Mentoring": true, "Buddy": true, "Rollout": true}
	if len(programs) != len(want) {
		t.Fatalf("unexpected programs: %v", programs)
	}
	for _, p := range programs {
		if !want[p] {
			t.Errorf("unexpected program value %q", p)
		}
	}

	resp := s.Responsibilities()
	seen := make(map[string]int)
	for _, r := range resp {
		seen[r]++
	}
	if seen["Onboarding"] != 1 {
		t.Errorf("expected Onboarding exactly once, got %d (all: %v)", seen["Onboarding"], resp)
	}
}
