package synapse

import (
	"fmt"
	"sort"
	"strings"
)

// QueryParams are the structured criteria of an entity query. Zero-value
// fields are left out of the generated condition.
type QueryParams struct {
	ID          string
	ParentID    string
	Name        string
	EntityType  string
	Annotations map[string]interface{}
}

// knownNodeTypes are the entity types accepted in EntityType filters.
var knownNodeTypes = map[string]string{
	"project": "project",
	"folder":  "folder",
	"file":    "file",
	"table":   "table",
	"dataset": "dataset",
	"link":    "link",
}

// BuildCondition composes the WHERE condition of an entity query from the
// given parameters, joining the individual predicates with AND.
func BuildCondition(params QueryParams) string {
	var parts []string

	if params.ID != "" {
		parts = append(parts, fmt.Sprintf("id == '%s'", escapeQueryValue(params.ID)))
	}
	if params.ParentID != "" {
		parts = append(parts, fmt.Sprintf("parentId == '%s'", escapeQueryValue(params.ParentID)))
	}
	if params.Name != "" {
		parts = append(parts, fmt.Sprintf("name == '%s'", escapeQueryValue(params.Name)))
	}
	if params.EntityType != "" {
		if nodeType, ok := knownNodeTypes[strings.ToLower(params.EntityType)]; ok {
			parts = append(parts, fmt.Sprintf("nodeType == '%s'", nodeType))
		}
	}
	if len(params.Annotations) > 0 {
		parts = append(parts, buildAnnotationCondition(params.Annotations))
	}

	return strings.Join(parts, " AND ")
}

// buildAnnotationCondition turns annotation key/value pairs into predicates.
// Keys are emitted in sorted order so the condition is deterministic.
func buildAnnotationCondition(annotations map[string]interface{}) string {
	keys := make([]string, 0, len(annotations))
	for key := range annotations {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		switch value := annotations[key].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s == '%s'", key, escapeQueryValue(value)))
		case bool, int, int64, float64:
			parts = append(parts, fmt.Sprintf("%s == %v", key, value))
		case []interface{}:
			elems := make([]string, 0, len(value))
			for _, elem := range value {
				if s, ok := elem.(string); ok {
					elems = append(elems, fmt.Sprintf("'%s'", escapeQueryValue(s)))
				} else {
					elems = append(elems, fmt.Sprintf("%v", elem))
				}
			}
			parts = append(parts, fmt.Sprintf("%s in (%s)", key, strings.Join(elems, ", ")))
		}
	}
	return strings.Join(parts, " AND ")
}

// escapeQueryValue doubles single quotes so values cannot terminate the
// string literal they are embedded in.
func escapeQueryValue(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
