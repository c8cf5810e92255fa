package jsonapi

// ResourceBuilder assembles a Resource.
type ResourceBuilder struct {
	resource Resource
}

func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{resource: Resource{
		Type:       resourceType,
		ID:         id,
		Attributes: make(map[string]any),
	}}
}

func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.resource.Attributes[key] = value
	return b
}

// Attrs copies attrs into the resource. The member names id and type belong
// to the resource object and are skipped.
func (b *ResourceBuilder) Attrs(attrs map[string]any) *ResourceBuilder {
	for k, v := range attrs {
		if k == "id" || k == "type" {
			continue
		}
		b.resource.Attributes[k] = v
	}
	return b
}

// HasManyIDs adds a to-many relationship to resources of relType. An empty
// ids list still produces the relationship with empty data.
func (b *ResourceBuilder) HasManyIDs(name, relType string, ids []string) *ResourceBuilder {
	if b.resource.Relationships == nil {
		b.resource.Relationships = make(map[string]Relationship)
	}
	data := make([]ResourceIdentifier, len(ids))
	for i, id := range ids {
		data[i] = ResourceIdentifier{Type: relType, ID: id}
	}
	b.resource.Relationships[name] = Relationship{Data: data}
	return b
}

func (b *ResourceBuilder) Meta(key string, value any) *ResourceBuilder {
	if b.resource.Meta == nil {
		b.resource.Meta = make(Meta)
	}
	b.resource.Meta[key] = value
	return b
}

// Link sets the self link.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.resource.Links = &Links{Self: self}
	return b
}

func (b *ResourceBuilder) Build() Resource {
	return b.resource
}
