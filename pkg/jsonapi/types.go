// Package jsonapi builds the JSON:API documents served by the introspection API.
// Document shapes follow https://jsonapi.org.
package jsonapi

// ContentType is the JSON:API media type.
const ContentType = "application/vnd.api+json"

// Document is a top-level document. It carries data or errors, never both.
type Document struct {
	Data     any        `json:"data,omitempty"`
	Errors   []Error    `json:"errors,omitempty"`
	Meta     Meta       `json:"meta,omitempty"`
	Links    *Links     `json:"links,omitempty"`
	Included []Resource `json:"included,omitempty"`
}

// Resource is one type, enumeration or encoded object.
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Links         *Links                  `json:"links,omitempty"`
	Meta          Meta                    `json:"meta,omitempty"`
}

// ResourceIdentifier is a resource linkage.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Relationship links a resource to others, e.g. a type to its bases.
type Relationship struct {
	Data []ResourceIdentifier `json:"data"`
}

// Links holds self and pagination links.
type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// Error is an error object.
type Error struct {
	Status string       `json:"status"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
	Meta   Meta         `json:"meta,omitempty"`
}

// ErrorSource locates the offending part of a request.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

type Meta map[string]any
