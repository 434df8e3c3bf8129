package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jkonratt/centaur/internal/contacts"
)

const toolFixtureCSV = `name;department;position;responsibilities;email;phone;location;description;programs
Jane Doe;Support;Agent;Tickets;jane.doe@example.org;+49 30 111;Berlin;First level;
John Smith;Support;Agent;Tickets;john.smith@example.org;+49 30 222;Berlin;First level;
Erika Mustermann;Support;Agent;Tickets;erika.mustermann@example.org;+49 30 333;Munich;First level;
Max Mueller;Support;Lead;Escalations;max.mueller@example.org;+49 30 444;Munich;;
Anna Schmidt;IT;Engineer;Infrastructure;anna.schmidt@example.org;+49 30 555;Berlin;Networks;Rollout
Peter Weber;IT;Engineer;Security;peter.weber@example.org;+49 30 666;Berlin;;Rollout
Lisa Braun;IT;Engineer;Licensing;lisa.braun@example.org;+49 30 777;Munich;Licenses;
`

func toolFixture(t *testing.T) *ContactTool {
	t.Helper()
	s, err := contacts.Parse(strings.NewReader(toolFixtureCSV))
	if err != nil {
		t.Fatalf("Parse fixture: %v", err)
	}
	return NewContactTool(s)
}

func TestContactToolGetToolDefinition(t *testing.T) {
	tool := toolFixture(t)
	def := tool.GetToolDefinition()

	if def.Name != ToolNameGetRelevantPeople {
		t.Errorf("expected function name %q, got %q", ToolNameGetRelevantPeople, def.Name)
	}
	if def.Description.Value == "" {
		t.Error("expected function description to be non-empty")
	}

	params := def.Parameters
	if params["type"] != "object" {
		t.Errorf("expected parameters type 'object', got %v", params["type"])
	}
	properties, ok := params["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("expected properties to be a map")
	}
	for _, prop := range []string{"department", "position", "responsibility", "program", "location"} {
		schema, exists := properties[prop].(map[string]interface{})
		if !exists {
			t.Fatalf("expected property %q to exist", prop)
		}
		enum, ok := schema["enum"].([]string)
		if !ok {
			t.Fatalf("expected %q enum to be a string slice", prop)
		}
		if len(enum) == 0 {
			t.Errorf("expected %q enum to be populated from the contact set", prop)
		}
	}

	departments, _ := properties["department"].(map[string]interface{})["enum"].([]string)
	if len(departments) != 2 {
		t.Errorf("expected 2 distinct departments in enum, got %v", departments)
	}
}

func TestContactToolAmbiguityGuard(t *testing.T) {
	tool := toolFixture(t)

	// Four Support contacts: ambiguous, fixed message verbatim.
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"department":"Support"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != TooManyMatchesMessage {
		t.Errorf("expected fixed ambiguity message, got %q", out)
	}
}

func TestContactToolRendersList(t *testing.T) {
	tool := toolFixture(t)

	// Three IT contacts: rendered as exactly three lines under the heading.
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"department":"IT"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	lines := strings.Split(out, "\n")
	if lines[0] != "Relevant people:" {
		t.Errorf("expected heading, got %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("expected heading plus 3 entries, got %d lines: %q", len(lines), out)
	}
	if !strings.Contains(lines[1], "anna.schmidt@example.org") {
		t.Errorf("expected email in entry, got %q", lines[1])
	}
}

func TestContactToolFallsBackToDescription(t *testing.T) {
	s, err := contacts.Parse(strings.NewReader(
		"name;department;position;responsibilities;email;phone;location;description;programs\n" +
			"Jane Doe;HR;Manager;;jane.doe@example.org;+49 30 111;Berlin;HR generalist;\n"))
	if err != nil {
		t.Fatal(err)
	}
	tool := NewContactTool(s)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "HR generalist") {
		t.Errorf("expected description fallback in output, got %q", out)
	}
}

func TestContactToolEmptyArguments(t *testing.T) {
	tool := toolFixture(t)

	// No filters over 7 contacts: still ambiguous.
	out, err := tool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != TooManyMatchesMessage {
		t.Errorf("expected ambiguity message for unfiltered query, got %q", out)
	}
}

func TestContactToolInvalidArguments(t *testing.T) {
	tool := toolFixture(t)
	if _, err := tool.Execute(context.Background(), json.RawMessage(`not json`)); err == nil {
		t.Error("expected error for malformed arguments")
	}
}
