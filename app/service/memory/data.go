package memory

import "time"

// Memory is the backend-agnostic record shape. Importance is populated only
// by stores that keep an explicit scale; it is never fabricated.
type Memory struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
	Importance *int           `json:"importance,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Relationship is a directed edge between two memory or entity identifiers.
type Relationship struct {
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	RelationType string         `json:"relation_type"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// KnowledgeGraph is the normalized result of Explore, identical in shape
// regardless of backend.
type KnowledgeGraph struct {
	Nodes []Memory       `json:"nodes"`
	Edges []Relationship `json:"edges"`
}

// OperationInfo describes one adapter operation for capability discovery.
type OperationInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params"`
	Example     string            `json:"example"`
}

type OperationSchema struct {
	Description string            `json:"description"`
	Params      map[string]string `json:"params"`
}

// parseTimestamp is lenient on purpose: the stores disagree on fractional
// seconds and zone suffixes, and a missing timestamp falls back to now the
// same way the remote stores themselves do.
func parseTimestamp(value string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}

	return time.Now().UTC()
}

func metaString(meta map[string]any, key, fallback string) string {
	if value, ok := meta[key].(string); ok && value != "" {
		return value
	}

	return fallback
}

func metaInt(meta map[string]any, key string, fallback int) int {
	switch value := meta[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return fallback
	}
}

func metaStrings(meta map[string]any, key string) []string {
	switch value := meta[key].(type) {
	case []string:
		return value
	case []any:
		result := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}
