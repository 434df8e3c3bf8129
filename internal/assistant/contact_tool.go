package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jkonratt/centaur/internal/contacts"
	"github.com/jkonratt/centaur/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// ToolNameGetRelevantPeople is the single function the assistant may call.
const ToolNameGetRelevantPeople = "get_relevant_people"

// maxListedMatches is the largest result set rendered as a contact list.
// Anything larger is ambiguous and answered with TooManyMatchesMessage.
const maxListedMatches = 3

// TooManyMatchesMessage is returned verbatim when a lookup remains ambiguous.
const TooManyMatchesMessage = "Please provide more information about the person you are looking for."

// ContactTool resolves get_relevant_people tool calls against the contact store.
type ContactTool struct {
	store *contacts.Store
}

// NewContactTool creates a contact lookup tool over the loaded store.
func NewContactTool(store *contacts.Store) *ContactTool {
	return &ContactTool{store: store}
}

// Name returns the tool's function name.
func (t *ContactTool) Name() string {
	return ToolNameGetRelevantPeople
}

// GetToolDefinition returns the function schema exposed to the assistant.
// Each parameter enum is populated from the distinct values present in the
// contact set at startup.
func (t *ContactTool) GetToolDefinition() shared.FunctionDefinitionParam {
	return shared.FunctionDefinitionParam{
		Name:        ToolNameGetRelevantPeople,
		Description: openai.String("Get the most relevant people for a given employee issue."),
		Parameters: shared.FunctionParameters{
			"type": "object",
			"properties": map[string]interface{}{
				"department": map[string]interface{}{
					"type":        "string",
					"enum":        t.store.Departments(),
					"description": "The department the contact person should be in.",
				},
				"position": map[string]interface{}{
					"type":        "string",
					"enum":        t.store.Positions(),
					"description": "The position the contact person should be in.",
				},
				"responsibility": map[string]interface{}{
					"type":        "string",
					"enum":        t.store.Responsibilities(),
					"description": "The responsibility the contact person should have.",
				},
				"program": map[string]interface{}{
					"type":        "string",
					"enum":        t.store.Programs(),
					"description": "The program which is related to the issue.",
				},
				"location": map[string]interface{}{
					"type":        "string",
					"enum":        t.store.Locations(),
					"description": "The location where the contact person should be located.",
				},
			},
			"required": []string{},
		},
	}
}

// Execute resolves one tool call. The argument bag is the provider-supplied
// JSON object; all fields are optional.
func (t *ContactTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var filters contacts.Filters
	if len(args) > 0 {
		if err := json.Unmarshal(args, &filters); err != nil {
			slog.Error("ContactTool.Execute: invalid arguments", "error", err, "args", string(args))
			return "", fmt.Errorf("invalid get_relevant_people arguments: %w", err)
		}
	}

	matches := t.store.Query(filters)
	slog.Debug("ContactTool.Execute: query resolved", "matches", len(matches), "filters", filters)

	if len(matches) > maxListedMatches {
		return TooManyMatchesMessage, nil
	}
	return renderRelevantPeople(matches), nil
}

// renderRelevantPeople formats each contact as a single-line summary under a
// heading: name, email, phone, and the responsibility (or description when no
// responsibility is recorded).
func renderRelevantPeople(matches []models.Contact) string {
	var b strings.Builder
	b.WriteString("Relevant people:")
	for _, c := range matches {
		detail := c.Responsibilities
		if detail == "" {
			detail = c.Description
		}
		fmt.Fprintf(&b, "\n- %s (%s, %s): %s", c.Name, c.Email, c.Phone, detail)
	}
	return b.String()
}
