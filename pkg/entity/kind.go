package entity

import (
	"fmt"
	"strings"
)

// Kind identifies one of the managed entity collections.
type Kind string

const (
	KindOrganization Kind = "organization"
	KindTeam         Kind = "team"
	KindPersonnel    Kind = "personnel"
	KindGame         Kind = "game"
	KindGenre        Kind = "genre"
)

// Kinds returns the built-in kinds in menu order.
func Kinds() []Kind {
	return []Kind{KindOrganization, KindTeam, KindPersonnel, KindGame, KindGenre}
}

// ParseKind resolves user input (case-insensitive, singular or plural) into a
// Kind.
func ParseKind(raw string) (Kind, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "organization", "organisation", "organizations", "organisations", "org", "orgs":
		return KindOrganization, nil
	case "team", "teams":
		return KindTeam, nil
	case "personnel", "person", "people":
		return KindPersonnel, nil
	case "game", "games":
		return KindGame, nil
	case "genre", "genres":
		return KindGenre, nil
	default:
		return "", fmt.Errorf("entity: unknown kind %q", raw)
	}
}

func (k Kind) String() string {
	return string(k)
}
