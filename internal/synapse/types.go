package synapse

import "strings"

// Entity is the subset of a Synapse entity surfaced through the gateway.
type Entity struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ConcreteType string `json:"concreteType,omitempty"`
	ParentID     string `json:"parentId,omitempty"`
	CreatedOn    string `json:"createdOn,omitempty"`
	ModifiedOn   string `json:"modifiedOn,omitempty"`
	CreatedBy    string `json:"createdBy,omitempty"`
	ModifiedBy   string `json:"modifiedBy,omitempty"`
	Etag         string `json:"etag,omitempty"`
}

// Type returns the short entity type ("Project", "Folder", "FileEntity",
// "TableEntity", ...) derived from the concrete type's last segment.
func (e *Entity) Type() string {
	if e.ConcreteType == "" {
		return ""
	}
	parts := strings.Split(e.ConcreteType, ".")
	return parts[len(parts)-1]
}

// IsContainer reports whether the entity can have children.
func (e *Entity) IsContainer() bool {
	switch e.Type() {
	case "Project", "Folder":
		return true
	}
	return false
}

// Annotations is the annotation map of an entity. Values keep the Synapse
// wire shape (each key maps to a typed multi-value object).
type Annotations struct {
	ID          string                 `json:"id"`
	Etag        string                 `json:"etag,omitempty"`
	Annotations map[string]interface{} `json:"annotations"`
}

// EntityHeader is the compact entity representation returned by children
// and search listings.
type EntityHeader struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	CreatedOn  string `json:"createdOn,omitempty"`
	ModifiedOn string `json:"modifiedOn,omitempty"`
}

// ChildrenPage is one page of a children listing.
type ChildrenPage struct {
	Page          []EntityHeader `json:"page"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

// SearchHit is a single search result.
type SearchHit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NodeType    string `json:"node_type,omitempty"`
	Description string `json:"description,omitempty"`
}

// SearchResult is the response of the search endpoint.
type SearchResult struct {
	Found int64       `json:"found"`
	Start int64       `json:"start"`
	Hits  []SearchHit `json:"hits"`
}

// Activity is the provenance record attached to an entity.
type Activity struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name,omitempty"`
	Description string                   `json:"description,omitempty"`
	Used        []map[string]interface{} `json:"used,omitempty"`
	CreatedOn   string                   `json:"createdOn,omitempty"`
	ModifiedOn  string                   `json:"modifiedOn,omitempty"`
}

// TableQueryResult holds a table query response in the headers-plus-rows
// shape the tools return to clients.
type TableQueryResult struct {
	Headers []string        `json:"headers"`
	Rows    [][]interface{} `json:"data"`
}

// UserProfile identifies the authenticated Synapse user.
type UserProfile struct {
	OwnerID   string `json:"ownerId"`
	UserName  string `json:"userName"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}
