package jsonapi

import "maps"

// DocumentBuilder assembles a Document.
type DocumentBuilder struct {
	doc Document
}

func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

// Data sets the primary data: a Resource or a []Resource.
func (b *DocumentBuilder) Data(data any) *DocumentBuilder {
	b.doc.Data = data
	return b
}

// Errors replaces the primary data with errors.
func (b *DocumentBuilder) Errors(errors ...Error) *DocumentBuilder {
	b.doc.Errors = errors
	b.doc.Data = nil
	return b
}

func (b *DocumentBuilder) Meta(key string, value any) *DocumentBuilder {
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	b.doc.Meta[key] = value
	return b
}

// Pagination merges the page meta into the document meta and sets the page
// links. A nil p leaves the document alone.
func (b *DocumentBuilder) Pagination(p *Pagination) *DocumentBuilder {
	if p == nil {
		return b
	}
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	maps.Copy(b.doc.Meta, p.Meta())
	b.doc.Links = p.Links()
	return b
}

// Include adds resources related to the primary data, e.g. the bundles a
// type includes.
func (b *DocumentBuilder) Include(resources ...Resource) *DocumentBuilder {
	b.doc.Included = append(b.doc.Included, resources...)
	return b
}

func (b *DocumentBuilder) Build() Document {
	return b.doc
}

// NewCollectionDocument returns a document whose primary data is resources,
// never null.
func NewCollectionDocument(resources []Resource, pagination *Pagination) Document {
	if resources == nil {
		resources = []Resource{}
	}
	return NewDocument().Data(resources).Pagination(pagination).Build()
}

func NewErrorDocument(errors ...Error) Document {
	return NewDocument().Errors(errors...).Build()
}
