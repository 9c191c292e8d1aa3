package entity

// Organization returns the organization schema.
func Organization() Schema {
	return Schema{
		Kind:            KindOrganization,
		Title:           "Organization",
		Collection:      "organization",
		IDField:         DefaultIDField,
		LabelFields:     []string{"name"},
		SummaryTemplate: `{{ name }}{% if location %} - {{ location }}{% endif %}`,
		Fields: []Field{
			{Name: "name", Type: FieldTypeString, Required: true},
			{Name: "location", Type: FieldTypeString, Required: true},
		},
	}
}

// Team returns the team schema.
func Team() Schema {
	return Schema{
		Kind:            KindTeam,
		Title:           "Team",
		Collection:      "team",
		IDField:         DefaultIDField,
		LabelFields:     []string{"name"},
		SummaryTemplate: `{{ name }}{% if organization.name %} - Organization: {{ organization.name }}{% endif %}`,
		Fields: []Field{
			{Name: "name", Type: FieldTypeString, Required: true},
			{Name: "organization", Type: FieldTypeRef, Target: KindOrganization, Required: true},
			{Name: "genres", Type: FieldTypeRefSet, Target: KindGenre, Array: ArrayJSON},
			{Name: "personnel", Type: FieldTypeRefSet, Target: KindPersonnel, Array: ArrayJSON},
		},
	}
}

// Personnel returns the personnel schema.
func Personnel() Schema {
	return Schema{
		Kind:        KindPersonnel,
		Title:       "Personnel",
		Collection:  "personnel",
		IDField:     DefaultIDField,
		Paginated:   true,
		LabelFields: []string{"first_name", "last_name"},
		SummaryTemplate: `{{ first_name }} {{ last_name }}{% if role %} - {{ role }}{% endif %}` +
			`{% if team.name %} (Team: {{ team.name }}){% endif %}`,
		Fields: []Field{
			{Name: "first_name", Type: FieldTypeString, Required: true},
			{Name: "last_name", Type: FieldTypeString, Required: true},
			{Name: "role", Type: FieldTypeString, Required: true},
			{Name: "team", Type: FieldTypeRef, Target: KindTeam, Required: true},
			{Name: "image", Type: FieldTypeAttachment},
		},
	}
}

// Game returns the game schema.
func Game() Schema {
	return Schema{
		Kind:        KindGame,
		Title:       "Game",
		Collection:  "game",
		IDField:     DefaultIDField,
		Paginated:   true,
		LabelFields: []string{"title"},
		SummaryTemplate: `{{ title|default:"Untitled Game" }}` +
			`{% if home_team.name and away_team.name %}: {{ home_team.name }} {{ home_score }} - {{ away_score }} {{ away_team.name }}{% endif %}` +
			`{% if played %} (Played){% endif %}`,
		Fields: []Field{
			{Name: "title", Type: FieldTypeString, Required: true},
			{Name: "video", Type: FieldTypeBoolean},
			{Name: "media_type", Type: FieldTypeString, Required: true},
			{Name: "original_language", Type: FieldTypeString},
			{Name: "original_title", Type: FieldTypeString},
			{Name: "overview", Type: FieldTypeString, Format: "textarea"},
			{Name: "popularity", Type: FieldTypeNumber},
			{Name: "poster_path", Type: FieldTypeString},
			{Name: "backdrop_path", Type: FieldTypeString},
			{Name: "vote_average", Type: FieldTypeNumber},
			{Name: "vote_count", Type: FieldTypeInteger},
			{Name: "date_played", Type: FieldTypeString, Format: "date"},
			{Name: "home_score", Type: FieldTypeInteger},
			{Name: "away_score", Type: FieldTypeInteger},
			{Name: "played", Type: FieldTypeBoolean},
			{Name: "home_team", Type: FieldTypeRef, Target: KindTeam, Required: true},
			{Name: "away_team", Type: FieldTypeRef, Target: KindTeam, Required: true},
			{Name: "genres", Type: FieldTypeRefSet, Target: KindGenre},
			{Name: "personnel", Type: FieldTypeRefSet, Target: KindPersonnel},
			{Name: "poster", Type: FieldTypeAttachment, Replaces: "poster_path"},
			{Name: "backdrop", Type: FieldTypeAttachment, Replaces: "backdrop_path"},
		},
	}
}

// Genre returns the genre schema.
func Genre() Schema {
	return Schema{
		Kind:        KindGenre,
		Title:       "Genre",
		Collection:  "genre",
		IDField:     DefaultIDField,
		LabelFields: []string{"name"},
		Fields: []Field{
			{Name: "name", Type: FieldTypeString, Required: true},
		},
	}
}

// DefaultRegistry returns a registry holding the five built-in schemas.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister(Organization())
	reg.MustRegister(Team())
	reg.MustRegister(Personnel())
	reg.MustRegister(Game())
	reg.MustRegister(Genre())
	return reg
}
