package entity_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsync/pkg/entity"
)

func TestParseKind(t *testing.T) {
	cases := map[string]entity.Kind{
		"Game":          entity.KindGame,
		" teams ":       entity.KindTeam,
		"organisation":  entity.KindOrganization,
		"people":        entity.KindPersonnel,
		"GENRES":        entity.KindGenre,
		"organizations": entity.KindOrganization,
	}
	for input, want := range cases {
		got, err := entity.ParseKind(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %q, got %q", input, want, got)
		}
	}

	if _, err := entity.ParseKind("venue"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestDefaultRegistry_DeclaresFiveKinds(t *testing.T) {
	reg := entity.DefaultRegistry()
	if diff := cmp.Diff(entity.Kinds(), reg.List()); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}

	multipart := map[entity.Kind]bool{}
	for _, kind := range reg.List() {
		schema, err := reg.Get(kind)
		if err != nil {
			t.Fatalf("get %s: %v", kind, err)
		}
		multipart[kind] = schema.Multipart()
	}
	want := map[entity.Kind]bool{
		entity.KindOrganization: false,
		entity.KindTeam:         false,
		entity.KindPersonnel:    true,
		entity.KindGame:         true,
		entity.KindGenre:        false,
	}
	if diff := cmp.Diff(want, multipart); diff != "" {
		t.Fatalf("multipart mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_RejectsDuplicatesAndInvalidSchemas(t *testing.T) {
	reg := entity.NewRegistry()
	if err := reg.Register(entity.Genre()); err != nil {
		t.Fatalf("register genre: %v", err)
	}
	if err := reg.Register(entity.Genre()); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	broken := entity.Schema{
		Kind: "venue",
		Fields: []entity.Field{
			{Name: "city", Type: entity.FieldTypeRef},
		},
	}
	if err := reg.Register(broken); err == nil {
		t.Fatalf("expected missing target error")
	}

	withID := entity.Schema{
		Kind:   "venue",
		Fields: []entity.Field{{Name: "_id", Type: entity.FieldTypeString}},
	}
	if err := reg.Register(withID); err == nil {
		t.Fatalf("expected identifier field error")
	}

	if _, err := reg.Get(entity.KindGame); err == nil {
		t.Fatalf("expected missing schema error")
	}
}

func TestSchema_URLs(t *testing.T) {
	team := entity.Team()
	if got := team.CollectionURL("http://api.test/v1/"); got != "http://api.test/v1/team" {
		t.Fatalf("unexpected collection url %q", got)
	}
	if got := team.ItemURL("http://api.test/v1", "a b"); got != "http://api.test/v1/team/a%20b" {
		t.Fatalf("unexpected item url %q", got)
	}
}

func TestSchema_OptionLabel(t *testing.T) {
	person := entity.Personnel()
	got := person.OptionLabel(map[string]any{"_id": "p1", "first_name": "Ada", "last_name": "Lovelace"})
	if got != "Ada Lovelace" {
		t.Fatalf("unexpected personnel label %q", got)
	}

	genre := entity.Genre()
	if got := genre.OptionLabel(map[string]any{"_id": "g1"}); got != "g1" {
		t.Fatalf("expected id fallback, got %q", got)
	}
}

func TestSchema_TargetsAreDistinct(t *testing.T) {
	got := entity.Game().Targets()
	want := []entity.Kind{entity.KindTeam, entity.KindGenre, entity.KindPersonnel}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldZeroValues(t *testing.T) {
	cases := []struct {
		field entity.Field
		want  any
	}{
		{entity.Field{Type: entity.FieldTypeString}, ""},
		{entity.Field{Type: entity.FieldTypeRef}, ""},
		{entity.Field{Type: entity.FieldTypeInteger}, int64(0)},
		{entity.Field{Type: entity.FieldTypeNumber}, float64(0)},
		{entity.Field{Type: entity.FieldTypeBoolean}, false},
		{entity.Field{Type: entity.FieldTypeRefSet}, []string{}},
		{entity.Field{Type: entity.FieldTypeAttachment}, nil},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, tc.field.Zero()); diff != "" {
			t.Fatalf("zero for %s mismatch (-want +got):\n%s", tc.field.Type, diff)
		}
	}
}

func TestDefaultLabeler(t *testing.T) {
	cases := map[string]string{
		"date_played":  "Date Played",
		"first_name":   "First Name",
		"home-team-id": "Home Team ID",
		"":             "",
	}
	for input, want := range cases {
		if got := entity.DefaultLabeler(input); got != want {
			t.Fatalf("label %q: expected %q, got %q", input, want, got)
		}
	}
}

func TestSchema_Summary(t *testing.T) {
	game := map[string]any{
		"title":      "Final",
		"home_team":  map[string]any{"_id": "t1", "name": "Lions"},
		"away_team":  map[string]any{"_id": "t2", "name": "Bears"},
		"home_score": 2,
		"away_score": 1,
		"played":     true,
	}
	if got := entity.Game().Summary(game); got != "Final: Lions 2 - 1 Bears (Played)" {
		t.Fatalf("unexpected game summary %q", got)
	}

	org := map[string]any{"name": "League", "location": "Oslo"}
	if got := entity.Organization().Summary(org); got != "League - Oslo" {
		t.Fatalf("unexpected organization summary %q", got)
	}

	person := map[string]any{"first_name": "Ada", "last_name": "Lovelace", "role": "coach", "team": "t1"}
	if got := entity.Personnel().Summary(person); got != "Ada Lovelace - coach" {
		t.Fatalf("unexpected personnel summary %q", got)
	}
}

func TestSchema_SummaryEmbeddedRelations(t *testing.T) {
	team := map[string]any{
		"name":         "Lions",
		"organization": map[string]any{"_id": "o1", "name": "League"},
	}
	if got := entity.Team().Summary(team); got != "Lions - Organization: League" {
		t.Fatalf("unexpected team summary %q", got)
	}

	bare := map[string]any{"name": "Lions", "organization": "o1"}
	if got := entity.Team().Summary(bare); got != "Lions" {
		t.Fatalf("unexpected team summary for bare reference %q", got)
	}

	person := map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"team":       map[string]any{"_id": "t1", "name": "Lions"},
	}
	if got := entity.Personnel().Summary(person); got != "Ada Lovelace (Team: Lions)" {
		t.Fatalf("unexpected personnel summary %q", got)
	}

	untitled := map[string]any{"home_team": "t1", "away_team": "t2", "home_score": 3.0, "played": false}
	if got := entity.Game().Summary(untitled); got != "Untitled Game" {
		t.Fatalf("unexpected untitled game summary %q", got)
	}
}

func TestSchema_SummaryCustomTemplate(t *testing.T) {
	schema := entity.Schema{
		Kind:        "venue",
		Collection:  "venue",
		LabelFields: []string{"name"},
		SummaryTemplate: `{{ name }} ({{ capacity }} seats)` +
			`{% for tenant in tenants %}{% if forloop.First %} home of{% else %},{% endif %} {{ tenant.name }}{% endfor %}`,
		Fields: []entity.Field{
			{Name: "name", Type: entity.FieldTypeString},
			{Name: "capacity", Type: entity.FieldTypeNumber},
			{Name: "tenants", Type: entity.FieldTypeRefSet, Target: entity.KindTeam},
		},
	}
	reg := entity.NewRegistry()
	if err := reg.Register(schema); err != nil {
		t.Fatalf("register: %v", err)
	}

	raw := map[string]any{
		"name":     "Arena & Co",
		"capacity": 1250.0,
		"tenants": []any{
			map[string]any{"_id": "t1", "name": "Lions"},
			map[string]any{"_id": "t2", "name": "Bears"},
		},
	}
	got, err := schema.RenderSummary(raw)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "Arena & Co (1250 seats) home of Lions, Bears"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSchema_SummaryFallsBackToLabel(t *testing.T) {
	genre := map[string]any{"_id": "g1", "name": "Arcade"}
	if got := entity.Genre().Summary(genre); got != "Arcade" {
		t.Fatalf("expected label fallback, got %q", got)
	}

	broken := entity.Schema{
		Kind:            "venue",
		Collection:      "venue",
		LabelFields:     []string{"name"},
		SummaryTemplate: `{{ name `,
	}
	if err := broken.Validate(); err == nil {
		t.Fatalf("expected validation error for malformed summary template")
	}
	if got := broken.Summary(map[string]any{"name": "Arena"}); got != "Arena" {
		t.Fatalf("expected label fallback for malformed template, got %q", got)
	}
}

func TestOpenAPI_DescribesCollections(t *testing.T) {
	doc := entity.OpenAPI(entity.DefaultRegistry(), "formsync", "1.0.0")

	for _, path := range []string{"/game", "/game/{id}", "/genre", "/team/{id}"} {
		if doc.Paths.Value(path) == nil {
			t.Fatalf("expected path %s", path)
		}
	}

	game := doc.Paths.Value("/game")
	if game.Post == nil || game.Post.RequestBody == nil {
		t.Fatalf("expected create operation on /game")
	}
	if _, ok := game.Post.RequestBody.Value.Content["multipart/form-data"]; !ok {
		t.Fatalf("expected multipart request body for game")
	}
	genre := doc.Paths.Value("/genre")
	if _, ok := genre.Post.RequestBody.Value.Content["application/json"]; !ok {
		t.Fatalf("expected json request body for genre")
	}
	if len(game.Get.Parameters) != 2 || len(genre.Get.Parameters) != 0 {
		t.Fatalf("expected pagination parameters only on paginated kinds")
	}

	schemaRef, ok := doc.Components.Schemas["Game"]
	if !ok || schemaRef.Value == nil {
		t.Fatalf("expected Game component schema")
	}
	if diff := cmp.Diff([]string{"title", "media_type", "home_team", "away_team"}, schemaRef.Value.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
}
