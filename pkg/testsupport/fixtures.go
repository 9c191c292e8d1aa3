// Package testsupport provides entity fixtures and an in-memory API server
// shared by package tests.
package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Organization returns an organization fixture.
func Organization(id, name, location string) map[string]any {
	return map[string]any{"_id": id, "name": name, "location": location}
}

// Team returns a team fixture referencing organization by identifier.
func Team(id, name, organization string) map[string]any {
	return map[string]any{
		"_id":          id,
		"name":         name,
		"organization": organization,
		"genres":       []any{},
		"personnel":    []any{},
	}
}

// Genre returns a genre fixture.
func Genre(id, name string) map[string]any {
	return map[string]any{"_id": id, "name": name}
}

// Personnel returns n personnel fixtures on team, identified p1..pn.
func Personnel(n int, team string) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, map[string]any{
			"_id":        fmt.Sprintf("p%d", i),
			"first_name": fmt.Sprintf("First%d", i),
			"last_name":  fmt.Sprintf("Last%d", i),
			"role":       "player",
			"team":       team,
		})
	}
	return out
}

// Games returns n game fixtures between home and away, identified g1..gn.
func Games(n int, home, away string) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, map[string]any{
			"_id":        fmt.Sprintf("g%d", i),
			"title":      fmt.Sprintf("Game %d", i),
			"media_type": "match",
			"home_team":  home,
			"away_team":  away,
			"home_score": i,
			"away_score": 0,
			"played":     i%2 == 0,
			"genres":     []any{},
			"personnel":  []any{},
		})
	}
	return out
}

// LoadJSON reads a JSON object fixture.
func LoadJSON(t *testing.T, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal fixture %s: %v", path, err)
	}
	return out
}

// AssertJSONEqual compares two JSON documents structurally.
func AssertJSONEqual(t *testing.T, want, got []byte) {
	t.Helper()

	var wantValue, gotValue any
	if err := json.Unmarshal(want, &wantValue); err != nil {
		t.Fatalf("unmarshal expected json: %v", err)
	}
	if err := json.Unmarshal(got, &gotValue); err != nil {
		t.Fatalf("unmarshal actual json: %v\n%s", err, got)
	}
	if diff := cmp.Diff(wantValue, gotValue); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}
}
