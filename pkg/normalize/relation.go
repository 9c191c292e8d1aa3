package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RelationKind tags the shape a relation value arrived in.
type RelationKind int

const (
	RelationAbsent RelationKind = iota
	RelationID
	RelationObject
	RelationList
)

func (k RelationKind) String() string {
	switch k {
	case RelationID:
		return "id"
	case RelationObject:
		return "object"
	case RelationList:
		return "list"
	default:
		return "absent"
	}
}

// Relation is the decoded form of a server relation value: a bare
// identifier, an embedded object, or a list of either.
type Relation struct {
	Kind RelationKind
	// ID is set for RelationID and RelationObject.
	ID string
	// Items holds the element variants of a RelationList.
	Items []Relation
}

// DecodeRelation classifies a raw relation value. Embedded objects are
// identified by idField, falling back to "id".
func DecodeRelation(raw any, idField string) Relation {
	switch value := raw.(type) {
	case nil:
		return Relation{Kind: RelationAbsent}
	case map[string]any:
		id := identifier(value[idField])
		if id == "" && idField != "id" {
			id = identifier(value["id"])
		}
		if id == "" {
			return Relation{Kind: RelationAbsent}
		}
		return Relation{Kind: RelationObject, ID: id}
	case []any:
		items := make([]Relation, 0, len(value))
		for _, item := range value {
			items = append(items, DecodeRelation(item, idField))
		}
		return Relation{Kind: RelationList, Items: items}
	case []string:
		items := make([]Relation, 0, len(value))
		for _, item := range value {
			items = append(items, DecodeRelation(item, idField))
		}
		return Relation{Kind: RelationList, Items: items}
	case []map[string]any:
		items := make([]Relation, 0, len(value))
		for _, item := range value {
			items = append(items, DecodeRelation(item, idField))
		}
		return Relation{Kind: RelationList, Items: items}
	default:
		id := identifier(value)
		if id == "" {
			return Relation{Kind: RelationAbsent}
		}
		return Relation{Kind: RelationID, ID: id}
	}
}

// One collapses the relation into a single identifier. Lists yield their
// first usable element.
func (r Relation) One() string {
	switch r.Kind {
	case RelationID, RelationObject:
		return r.ID
	case RelationList:
		for _, item := range r.Items {
			if id := item.One(); id != "" {
				return id
			}
		}
	}
	return ""
}

// Many collapses the relation into an ordered identifier list, dropping
// empty elements. The result is never nil.
func (r Relation) Many() []string {
	switch r.Kind {
	case RelationID, RelationObject:
		return []string{r.ID}
	case RelationList:
		out := make([]string, 0, len(r.Items))
		for _, item := range r.Items {
			if item.Kind == RelationList {
				out = append(out, item.Many()...)
				continue
			}
			if id := item.One(); id != "" {
				out = append(out, id)
			}
		}
		return out
	default:
		return []string{}
	}
}

func identifier(raw any) string {
	switch value := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(value)
	}
}
