// Package contacts loads and queries the organizational contact directory.
//
// The directory is a semicolon-delimited file with fixed columns
// name;department;position;responsibilities;email;phone;location;description;programs.
// It is loaded once at startup and treated as immutable thereafter.
package contacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jkonratt/centaur/internal/models"
)

// columnCount is the number of columns in the contact file. The trailing
// programs column may be absent, so rows with one fewer field are accepted.
const columnCount = 9

// Store holds the loaded contact set and answers lookup queries.
type Store struct {
	contacts []models.Contact
}

// Filters narrows a contact query. All fields are optional; empty fields are
// skipped. Department, position and location match exactly; responsibility
// and program match by case-insensitive substring containment.
type Filters struct {
	Department     string `json:"department,omitempty"`
	Position       string `json:"position,omitempty"`
	Responsibility string `json:"responsibility,omitempty"`
	Program        string `json:"program,omitempty"`
	Location       string `json:"location,omitempty"`
}

// Load reads the contact file at path into a Store.
// The first row is a header and is skipped; missing cells become empty strings.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("contacts.Load: failed to open contact file", "error", err, "path", path)
		return nil, fmt.Errorf("failed to open contact file: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, err
	}
	slog.Info("contacts.Load: contact directory loaded", "path", path, "contacts", len(s.contacts))
	return s, nil
}

// Parse reads semicolon-delimited contact rows from r.
func Parse(r io.Reader) (*Store, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1 // programs column may be absent

	rows, err := reader.ReadAll()
	if err != nil {
		slog.Error("contacts.Parse: failed to parse contact data", "error", err)
		return nil, fmt.Errorf("failed to parse contact data: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("contact data is empty")
	}

	contacts := make([]models.Contact, 0, len(rows)-1)
	for i, row := range rows[1:] { // skip header
		if len(row) < columnCount-1 {
			slog.Warn("contacts.Parse: skipping short row", "row", i+2, "fields", len(row))
			continue
		}
		contacts = append(contacts, models.Contact{
			Name:             field(row, 0),
			Department:       field(row, 1),
			Position:         field(row, 2),
			Responsibilities: field(row, 3),
			Email:            field(row, 4),
			Phone:            field(row, 5),
			Location:         field(row, 6),
			Description:      field(row, 7),
			Programs:         field(row, 8),
		})
	}
	return &Store{contacts: contacts}, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// All returns a copy of the full contact set.
func (s *Store) All() []models.Contact {
	out := make([]models.Contact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

// Len returns the number of loaded contacts.
func (s *Store) Len() int {
	return len(s.contacts)
}

// Query applies the progressive filter policy: each non-empty filter field is
// applied in a fixed order (department, position, responsibility, program,
// location), and the working set is replaced by the filtered subset only when
// that subset is non-empty. A filter matching nothing is skipped rather than
// zeroing the result. The loaded set is never mutated.
func (s *Store) Query(f Filters) []models.Contact {
	working := s.All()

	working = narrow(working, f.Department, func(c models.Contact) bool {
		return c.Department == f.Department
	})
	working = narrow(working, f.Position, func(c models.Contact) bool {
		return c.Position == f.Position
	})
	working = narrow(working, f.Responsibility, func(c models.Contact) bool {
		return containsFold(c.Responsibilities, f.Responsibility)
	})
	working = narrow(working, f.Program, func(c models.Contact) bool {
		return containsFold(c.Programs, f.Program)
	})
	working = narrow(working, f.Location, func(c models.Contact) bool {
		return c.Location == f.Location
	})

	return working
}

// narrow returns the subset of contacts matching the predicate, unless the
// filter value is empty or the subset would be empty, in which case the
// working set is returned unchanged.
func narrow(working []models.Contact, value string, match func(models.Contact) bool) []models.Contact {
	if value == "" {
		return working
	}
	var subset []models.Contact
	for _, c := range working {
		if match(c) {
			subset = append(subset, c)
		}
	}
	if len(subset) == 0 {
		return working
	}
	return subset
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// FindByEmail returns the first contact whose email contains the given string
// case-insensitively, or nil when no contact matches.
func (s *Store) FindByEmail(email string) *models.Contact {
	if email == "" {
		return nil
	}
	for i := range s.contacts {
		if containsFold(s.contacts[i].Email, email) {
			c := s.contacts[i]
			return &c
		}
	}
	return nil
}

// Departments returns the distinct non-empty department values in load order.
func (s *Store) Departments() []string {
	return s.distinctColumn(func(c models.Contact) string { return c.Department })
}

// Positions returns the distinct non-empty position values in load order.
func (s *Store) Positions() []string {
	return s.distinctColumn(func(c models.Contact) string { return c.Position })
}

// Locations returns the distinct non-empty location values in load order.
func (s *Store) Locations() []string {
	return s.distinctColumn(func(c models.Contact) string { return c.Location })
}

// Responsibilities returns the distinct individual responsibility values,
// splitting the comma-joined column.
func (s *Store) Responsibilities() []string {
	return s.distinctExploded(func(c models.Contact) string { return c.Responsibilities })
}

// Programs returns the distinct individual program values, splitting the
// comma-joined column and dropping absent entries.
func (s *Store) Programs() []string {
	return s.distinctExploded(func(c models.Contact) string { return c.Programs })
}

func (s *Store) distinctColumn(get func(models.Contact) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.contacts {
		v := get(c)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func (s *Store) distinctExploded(get func(models.Contact) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.contacts {
		for _, part := range strings.Split(get(c), ",") {
			v := strings.TrimSpace(part)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
