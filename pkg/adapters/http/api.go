package http

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var specYAML []byte

// rawSpec returns the embedded OpenAPI document.
func rawSpec() ([]byte, error) {
	return specYAML, nil
}

// GetSwagger loads and validates the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// DocumentRef identifies a document.
type DocumentRef struct {
	ID string `json:"id"`
}

// CreateDocumentRequest opens a document from text or from a template.
type CreateDocumentRequest struct {
	ID       *string `json:"id,omitempty"`
	Title    *string `json:"title,omitempty"`
	Text     *string `json:"text,omitempty"`
	Template *string `json:"template,omitempty"`
}

// TextRequest replaces the text buffer.
type TextRequest struct {
	Text string `json:"text"`
}

// TextResponse carries the canonical text of a document.
type TextResponse struct {
	Text  string `json:"text"`
	View  string `json:"view"`
	Dirty bool   `json:"dirty"`
}

// ViewRequest selects the active view.
type ViewRequest struct {
	View string `json:"view"`
}

// UpdateNodeRequest edits a node. Type is applied first, then Value, then Key.
type UpdateNodeRequest struct {
	Value *string `json:"value,omitempty"`
	Key   *string `json:"key,omitempty"`
	Type  *string `json:"type,omitempty"`
}

// AddNodeRequest appends a child node.
type AddNodeRequest struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ReorderRequest moves a child between positions.
type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ErrorResponse is the body of every error status.
type ErrorResponse struct {
	Error string `json:"error"`
	Line  int    `json:"line,omitempty"`
}

// CloseDocumentParams are the query parameters of closeDocument.
type CloseDocumentParams struct {
	Force *bool `form:"force,omitempty" json:"force,omitempty"`
}

// ListTemplatesParams are the query parameters of listTemplates.
type ListTemplatesParams struct {
	Q *string `form:"q,omitempty" json:"q,omitempty"`
}

// SubscribeEventsParams are the query parameters of subscribeEvents.
type SubscribeEventsParams struct {
	Types *string `form:"types,omitempty" json:"types,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// (GET /info)
	GetInfo(w http.ResponseWriter, r *http.Request)
	// (GET /documents)
	ListDocuments(w http.ResponseWriter, r *http.Request)
	// (POST /documents)
	CreateDocument(w http.ResponseWriter, r *http.Request)
	// (DELETE /documents/{id})
	CloseDocument(w http.ResponseWriter, r *http.Request, id string, params CloseDocumentParams)
	// (GET /documents/{id}/text)
	GetText(w http.ResponseWriter, r *http.Request, id string)
	// (PUT /documents/{id}/text)
	PutText(w http.ResponseWriter, r *http.Request, id string)
	// (POST /documents/{id}/view)
	SwitchView(w http.ResponseWriter, r *http.Request, id string)
	// (GET /documents/{id}/tree)
	GetTree(w http.ResponseWriter, r *http.Request, id string)
	// (POST /documents/{id}/save)
	SaveDocument(w http.ResponseWriter, r *http.Request, id string)
	// (GET /documents/{id}/events)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, id string, params SubscribeEventsParams)
	// (PATCH /documents/{id}/nodes/{node})
	UpdateNode(w http.ResponseWriter, r *http.Request, id string, node int64)
	// (DELETE /documents/{id}/nodes/{node})
	DeleteNode(w http.ResponseWriter, r *http.Request, id string, node int64)
	// (POST /documents/{id}/nodes/{node}/children)
	AddNode(w http.ResponseWriter, r *http.Request, id string, node int64)
	// (POST /documents/{id}/nodes/{node}/reorder)
	ReorderNode(w http.ResponseWriter, r *http.Request, id string, node int64)
	// (GET /templates)
	ListTemplates(w http.ResponseWriter, r *http.Request, params ListTemplatesParams)
}

// HandlerFromMux registers the API routes on r and returns it.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	r.Get("/health", si.GetHealth)
	r.Get("/info", si.GetInfo)
	r.Get("/documents", si.ListDocuments)
	r.Post("/documents", si.CreateDocument)

	r.Delete("/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := bindDocumentID(w, r)
		if !ok {
			return
		}
		var params CloseDocumentParams
		if err := runtime.BindQueryParameter("form", true, false, "force", r.URL.Query(), &params.Force); err != nil {
			paramError(w, "force", err)
			return
		}
		si.CloseDocument(w, r, id, params)
	})
	r.Get("/documents/{id}/text", withID(si.GetText))
	r.Put("/documents/{id}/text", withID(si.PutText))
	r.Post("/documents/{id}/view", withID(si.SwitchView))
	r.Get("/documents/{id}/tree", withID(si.GetTree))
	r.Post("/documents/{id}/save", withID(si.SaveDocument))
	r.Get("/documents/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		id, ok := bindDocumentID(w, r)
		if !ok {
			return
		}
		var params SubscribeEventsParams
		if err := runtime.BindQueryParameter("form", true, false, "types", r.URL.Query(), &params.Types); err != nil {
			paramError(w, "types", err)
			return
		}
		si.SubscribeEvents(w, r, id, params)
	})

	r.Patch("/documents/{id}/nodes/{node}", withNode(si.UpdateNode))
	r.Delete("/documents/{id}/nodes/{node}", withNode(si.DeleteNode))
	r.Post("/documents/{id}/nodes/{node}/children", withNode(si.AddNode))
	r.Post("/documents/{id}/nodes/{node}/reorder", withNode(si.ReorderNode))

	r.Get("/templates", func(w http.ResponseWriter, r *http.Request) {
		var params ListTemplatesParams
		if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &params.Q); err != nil {
			paramError(w, "q", err)
			return
		}
		si.ListTemplates(w, r, params)
	})
	return r
}

func withID(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := bindDocumentID(w, r); ok {
			fn(w, r, id)
		}
	}
}

func withNode(fn func(http.ResponseWriter, *http.Request, string, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bindDocumentID(w, r)
		if !ok {
			return
		}
		var node int64
		err := runtime.BindStyledParameterWithLocation("simple", false, "node", runtime.ParamLocationPath, chi.URLParam(r, "node"), &node)
		if err != nil {
			paramError(w, "node", err)
			return
		}
		fn(w, r, id, node)
	}
}

func bindDocumentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithLocation("simple", false, "id", runtime.ParamLocationPath, chi.URLParam(r, "id"), &id)
	if err != nil {
		paramError(w, "id", err)
		return "", false
	}
	return id, true
}

func paramError(w http.ResponseWriter, name string, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: fmt.Sprintf("Invalid format for parameter %s: %v", name, err),
	})
}
