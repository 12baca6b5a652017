package server

import (
	"testing"

	"github.com/example/speckit/internal/cli"
)

func TestToolDefinitionsCoverRegistry(t *testing.T) {
	for _, entry := range cli.Registry() {
		tool := toolDefinition(entry)
		if tool.Name != entry.Name {
			t.Errorf("tool name %s != registry name %s", tool.Name, entry.Name)
		}
		if tool.Description == "" {
			t.Errorf("%s has no description", entry.Name)
		}
	}
}

func TestStageToolsRequireSpecID(t *testing.T) {
	entry, ok := cli.Lookup("speckit.plan")
	if !ok {
		t.Fatal("speckit.plan missing")
	}
	tool := toolDefinition(*entry)
	found := false
	for _, name := range tool.InputSchema.Required {
		if name == "spec_id" {
			found = true
		}
	}
	if !found {
		t.Errorf("spec_id not required: %v", tool.InputSchema.Required)
	}
	if _, ok := tool.InputSchema.Properties["agent"]; !ok {
		t.Error("stage tool missing agent parameter")
	}
}

func TestIntakeToolRequiresAllFields(t *testing.T) {
	entry, ok := cli.Lookup("speckit.new")
	if !ok {
		t.Fatal("speckit.new missing")
	}
	tool := toolDefinition(*entry)
	required := map[string]bool{}
	for _, name := range tool.InputSchema.Required {
		required[name] = true
	}
	for _, want := range []string{"title", "problem", "users", "goals", "non_goals",
		"constraints", "integration_points", "acceptance_criteria"} {
		if !required[want] {
			t.Errorf("%s not required on speckit.new", want)
		}
	}
}
