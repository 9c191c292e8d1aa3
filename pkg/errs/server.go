package errs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxBodySnippet = 512

// Server builds a KindServer error from a non-success response. Field errors
// are extracted from common payload shapes:
//
//	{"errors": {"name": "is required"}}
//	{"errors": {"name": ["is required"]}}
//	{"errors": {"name": {"message": "is required"}}}
//	{"errors": [{"path": "/name", "message": "is required"}]}
//	{"message": "..."} / {"error": "..."}
func Server(op string, status int, body []byte) *Error {
	out := &Error{
		Kind:   KindServer,
		Op:     op,
		Status: status,
		Body:   snippet(body),
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return out
	}

	switch errs := payload["errors"].(type) {
	case map[string]any:
		keys := make([]string, 0, len(errs))
		for key := range errs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			out.addPath(key, messagesOf(errs[key])...)
		}
	case []any:
		for _, item := range errs {
			entry, ok := item.(map[string]any)
			if !ok {
				out.Form = append(out.Form, messagesOf(item)...)
				continue
			}
			path := firstString(entry, "path", "field", "pointer", "param")
			out.addPath(path, messagesOf(entry)...)
		}
	}

	for _, key := range []string{"message", "error"} {
		if msg, ok := payload[key].(string); ok {
			out.Form = append(out.Form, msg)
		}
	}
	out.Form = normalizeMessages(out.Form)
	return out
}

func (e *Error) addPath(raw string, messages ...string) {
	segments := parsePathSegments(raw)
	if len(segments) == 0 || isFormLevelKey(segments[0]) {
		e.Form = append(e.Form, messages...)
		return
	}
	e.AddField(segments[0], messages...)
}

func messagesOf(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, messagesOf(item)...)
		}
		return out
	case map[string]any:
		if msg := firstString(v, "message", "msg", "detail"); msg != "" {
			return []string{msg}
		}
		return nil
	default:
		return []string{fmt.Sprint(v)}
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxBodySnippet {
		return text
	}
	cut := maxBodySnippet
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", "_", "_form", "form", "_error", "$", "#", "/":
		return true
	}
	return false
}

// parsePathSegments splits JSON pointer, dotted and bracketed paths into
// segments ("/home_team/0" -> [home_team 0]).
func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}
