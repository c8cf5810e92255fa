// Package http serves the introspection API: registered types, their
// properties and JSON Schema, named enumerations, and validation and
// encoding of attribute sets.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/vizprops/adapters/metrics"
	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/schema"
	"github.com/artpar/vizprops/core/schemaexport"
	"github.com/artpar/vizprops/core/validation"
	"github.com/artpar/vizprops/pkg/jsonapi"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// SchemaContentType is served by the jsonschema endpoint.
const SchemaContentType = "application/schema+json"

// TypeSource is the read side of a type registry. *registry.Registry
// satisfies it.
type TypeSource interface {
	Get(name string) (*model.Type, bool)
	List() []*model.Type
	Enums() *enum.Catalog
}

// Handler serves the introspection endpoints.
type Handler struct {
	types     TypeSource
	validator *validation.Validator
	checker   *schemaexport.Checker
	logger    zerolog.Logger
	metrics   *metrics.Collector
}

// NewHandler creates a handler over types. m may be nil.
func NewHandler(types TypeSource, logger zerolog.Logger, m *metrics.Collector) *Handler {
	return &Handler{
		types:     types,
		validator: validation.New(types),
		checker:   schemaexport.NewChecker(),
		logger:    logger,
		metrics:   m,
	}
}

// ListTypes handles GET /types.
//
// Query: bundles=false hides bundles; page[number]/page[size] paginate.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	types := h.types.List()
	if q.Get("bundles") == "false" {
		kept := types[:0]
		for _, t := range types {
			if !t.IsBundle() {
				kept = append(kept, t)
			}
		}
		types = kept
	}

	var p *jsonapi.Pagination
	if jsonapi.Paginated(q) {
		page, perPage := jsonapi.ParsePaginationParams(q, 20)
		p = jsonapi.NewPagination(int64(len(types)), page, perPage, r.URL.String())
	}

	listed := jsonapi.Page(types, p)
	resources := make([]jsonapi.Resource, 0, len(listed))
	for _, t := range listed {
		resources = append(resources, summaryResource(schema.SummarizeType(t)))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, p)
}

// GetType handles GET /types/{name}.
func (h *Handler) GetType(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	ts := schema.DescribeType(t)
	res := jsonapi.NewResource("types", ts.Type).
		Attr("doc", ts.Doc).
		Attr("bundle", ts.Bundle).
		Attr("fingerprint", ts.Fingerprint).
		Attr("properties", ts.Properties).
		Attr("includes", ts.Includes).
		Attr("overrides", ts.Overrides).
		Attr("containers", ts.Containers).
		Attr("refs", ts.Refs).
		Attr("specs", ts.Specs).
		HasManyIDs("bases", "types", ts.Bases).
		Link("/types/" + ts.Type).
		Build()

	doc := jsonapi.NewDocument().Data(res)
	for _, inc := range ts.Includes {
		if b, ok := h.types.Get(inc.Bundle); ok {
			doc.Include(summaryResource(schema.SummarizeType(b)))
		}
	}
	jsonapi.WriteDocument(w, http.StatusOK, doc.Build())
}

// GetTypeSchema handles GET /types/{name}/jsonschema.
func (h *Handler) GetTypeSchema(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", SchemaContentType)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schemaexport.Type(t)); err != nil {
		h.logger.Error().Err(err).Str("type", t.Name()).Msg("encode json schema")
	}
}

// ValidateType handles POST /types/{name}/validate. The body is a JSON:API
// resource document; only its attributes are checked. With ?wire=true the
// attributes are treated as a wire update, which may set readonly
// properties. The response is always 200 with the verdict in meta.
func (h *Handler) ValidateType(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}
	attrs, ok := h.readAttributes(w, r, t.Name())
	if !ok {
		return
	}

	var result schema.ValidationResult
	if r.URL.Query().Get("wire") == "true" {
		result = h.validator.ValidateWire(t.Name(), attrs)
	} else {
		result = h.validator.ValidateUpdate(t.Name(), attrs)
	}

	meta := jsonapi.Meta{"valid": result.Valid}
	if len(result.Errors) > 0 {
		meta["errors"] = result.Errors
	}
	jsonapi.WriteMeta(w, http.StatusOK, meta)
}

// EncodeType handles POST /types/{name}/encode: it builds an instance from
// the attributes and returns its wire form. ?defaults=true includes
// unassigned defaults. Rejected attributes give 422 with one error each.
func (h *Handler) EncodeType(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if t.IsBundle() {
		jsonapi.WriteError(w, jsonapi.ErrBadRequest(fmt.Sprintf("%s is a bundle and has no instances", t.Name())))
		return
	}
	attrs, ok := h.readAttributes(w, r, t.Name())
	if !ok {
		return
	}

	if result := h.validator.ValidateUpdate(t.Name(), attrs); !result.Valid {
		jsonapi.WriteError(w, validationErrors(result)...)
		return
	}

	var opts []model.ObjectOption
	if h.metrics != nil {
		opts = append(opts, model.WithObserver(h.metrics))
	}
	obj, err := t.New(opts...)
	if err != nil {
		jsonapi.WriteErrorFromGo(w, err)
		return
	}
	if err := obj.Update(attrs); err != nil {
		jsonapi.WriteErrorFromGo(w, err)
		return
	}

	ser := model.Serializer{IncludeDefaults: r.URL.Query().Get("defaults") == "true"}
	doc := ser.Serialize(obj)
	if h.metrics != nil {
		h.metrics.ObserveSerialization(t.Name(), len(doc.Objects))
	}
	if r.URL.Query().Get("check") == "true" {
		if err := h.checker.CheckObject(obj); err != nil {
			h.logger.Warn().Err(err).Str("type", t.Name()).Msg("encoded object does not match its schema")
			jsonapi.WriteErrorFromGo(w, err)
			return
		}
	}

	res := jsonapi.NewResource(t.Name(), obj.ID()).
		Attrs(doc.Objects[0].Attributes).
		Meta("fingerprint", t.Fingerprint()).
		Build()
	jsonapi.WriteResource(w, http.StatusOK, res)
}

// ListEnums handles GET /enums.
func (h *Handler) ListEnums(w http.ResponseWriter, r *http.Request) {
	catalog := h.types.Enums()
	names := catalog.Names()
	resources := make([]jsonapi.Resource, 0, len(names))
	for _, name := range names {
		e, _ := catalog.Lookup(name)
		resources = append(resources, enumResource(schema.DescribeEnum(name, e)))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, nil)
}

// GetEnum handles GET /enums/{name}.
func (h *Handler) GetEnum(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, ok := h.types.Enums().Lookup(name)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("enum", name))
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, enumResource(schema.DescribeEnum(name, e)))
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*model.Type, bool) {
	name := chi.URLParam(r, "name")
	t, ok := h.types.Get(name)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID("type", name))
		return nil, false
	}
	return t, true
}

type resourceRequest struct {
	Data *struct {
		Type       string         `json:"type"`
		Attributes map[string]any `json:"attributes"`
	} `json:"data"`
}

// readAttributes decodes a JSON:API resource document. Numbers are decoded
// as int64 when integral and float64 otherwise.
func (h *Handler) readAttributes(w http.ResponseWriter, r *http.Request, typeName string) (map[string]any, bool) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || (mt != "application/json" && mt != jsonapi.ContentType) {
			jsonapi.WriteError(w, jsonapi.ErrUnsupportedMediaType(ct))
			return nil, false
		}
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()

	var req resourceRequest
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			jsonapi.WriteError(w, jsonapi.ErrMissingData("request body is empty"))
			return nil, false
		}
		jsonapi.WriteError(w, jsonapi.ErrBadRequest("invalid JSON: "+err.Error()))
		return nil, false
	}
	if req.Data == nil {
		jsonapi.WriteError(w, jsonapi.ErrMissingData("data is required"))
		return nil, false
	}
	if req.Data.Type != "" && req.Data.Type != typeName {
		jsonapi.WriteError(w, jsonapi.ErrTypeConflict(req.Data.Type, typeName))
		return nil, false
	}

	attrs := make(map[string]any, len(req.Data.Attributes))
	for k, v := range req.Data.Attributes {
		attrs[k] = normalizeNumbers(v)
	}
	return attrs, true
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	}
	return v
}

func validationErrors(result schema.ValidationResult) []jsonapi.Error {
	out := make([]jsonapi.Error, 0, len(result.Errors))
	for _, ce := range result.Errors {
		out = append(out, jsonapi.ErrConstraint(ce.Property, ce.Constraint, ce.Message))
	}
	return out
}

func summaryResource(s schema.TypeSummary) jsonapi.Resource {
	return jsonapi.NewResource("types", s.Name).
		Attr("doc", s.Doc).
		Attr("bundle", s.Bundle).
		Attr("properties", s.Properties).
		Attr("fingerprint", s.Fingerprint).
		HasManyIDs("bases", "types", s.Bases).
		Link("/types/" + s.Name).
		Build()
}

func enumResource(e schema.EnumSchema) jsonapi.Resource {
	return jsonapi.NewResource("enums", e.Name).
		Attr("values", e.Values).
		Attr("default", e.Default).
		Attr("case_sensitive", e.CaseSensitive).
		Link("/enums/" + e.Name).
		Build()
}
