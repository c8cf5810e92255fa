package jsonapi

import (
	"encoding/json"
	"net/http"
)

func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

func WriteResource(w http.ResponseWriter, status int, r Resource) {
	WriteDocument(w, status, NewDocument().Data(r).Build())
}

// WriteCollection writes resources as primary data, with page meta and
// links when pagination is set.
func WriteCollection(w http.ResponseWriter, status int, resources []Resource, pagination *Pagination) {
	WriteDocument(w, status, NewCollectionDocument(resources, pagination))
}

// WriteError writes errors with the status of the first one. Without
// errors, or with an unparseable status, the response is a 500.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{ErrInternal("")}
	}
	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteDocument(w, status, NewErrorDocument(errs...))
}

// WriteMeta writes a document holding only meta, such as a validation verdict.
func WriteMeta(w http.ResponseWriter, status int, meta Meta) {
	WriteDocument(w, status, Document{Meta: meta})
}

func WriteErrorFromGo(w http.ResponseWriter, err error) {
	WriteError(w, ErrFromError(err))
}
