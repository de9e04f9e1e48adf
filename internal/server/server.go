// Package server exposes the resource framework over HTTP. Each registered
// resource gets schema, record, form, and action endpoints; the stores
// behind them are the same ones a UI process would drive directly.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/adminkit/internal/action"
	"github.com/matthewbaird/adminkit/internal/render"
	"github.com/matthewbaird/adminkit/internal/schema"
	"github.com/matthewbaird/adminkit/internal/store"
)

// Resource bundles a contract with its injected fetch/mutate functions.
// The framework needs nothing else from the storage layer.
type Resource struct {
	Contract *schema.Contract
	List     store.FetchListFunc
	Get      store.FetchOneFunc
	Save     store.MutateFunc
	Delete   func(ctx context.Context, id string) error
}

// Server hosts the registered resources.
type Server struct {
	mu        sync.RWMutex
	stores    *store.Registry
	engine    *render.Engine
	resources map[string]Resource
	overlays  map[string]*action.Registry
}

// New creates a server whose stores live in the given registry.
func New(stores *store.Registry) *Server {
	return &Server{
		stores:    stores,
		engine:    render.NewEngine(),
		resources: make(map[string]Resource),
		overlays:  make(map[string]*action.Registry),
	}
}

// Register wires one resource's stores: a list store, a single store, and a
// form store seeded from the single store's response. The resource also gets
// a default overlay registry: createOrUpdate renders the form, delete
// renders a confirmation.
//
// Each resource shares one store of each variant across all HTTP requests,
// mirroring a single screen driving its stores. Generation fencing keeps the
// stores themselves consistent, but concurrent requests against the same
// resource can observe each other's single/form state; a multi-client
// deployment would key stores per session instead.
func (s *Server) Register(name string, res Resource) {
	s.mu.Lock()
	s.resources[name] = res
	s.overlays[name] = s.defaultOverlays(name)
	s.mu.Unlock()

	s.stores.NewList(name+".list", res.List)
	single := s.stores.NewSingle(name+".single", res.Get)
	s.stores.NewForm(name+".form", res.Contract, single.Response, res.Save)
}

func (s *Server) defaultOverlays(name string) *action.Registry {
	return action.NewRegistry(
		action.Entry{
			Action: store.ActionCreateOrUpdate,
			Component: action.ComponentFunc(func(_ store.Store, _ string) *render.Node {
				form, err := s.stores.Form(name + ".form")
				if err != nil {
					return render.Diagnostic(name+".form", err.Error())
				}
				return &render.Node{
					Path:     name + ".form",
					Kind:     "form",
					Children: s.engine.Render(form),
				}
			}),
		},
		action.Entry{
			Action: store.ActionDelete,
			Component: action.ComponentFunc(func(st store.Store, key string) *render.Node {
				return &render.Node{
					Path:  key,
					Kind:  "confirm",
					Label: "Delete record",
					Value: st.Payload(),
				}
			}),
		},
	)
}

func (s *Server) resource(name string) (Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[name]
	return res, ok
}

// Names returns the registered resource names, sorted.
func (s *Server) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.resources))
	for name := range s.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Routes assembles the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/resources", func(r chi.Router) {
		r.Get("/", s.handleNames)
		r.Route("/{resource}", func(r chi.Router) {
			r.Get("/schema", s.handleSchema)
			r.Get("/form", s.handleForm)
			r.Get("/records", s.handleList)
			r.Post("/records", s.handleCreate)
			r.Get("/records/{id}", s.handleGet)
			r.Patch("/records/{id}", s.handleUpdate)
			r.Delete("/records/{id}", s.handleDelete)
			r.Post("/action", s.handleSetAction)
			r.Get("/action", s.handleGetAction)
			r.Get("/overlay", s.handleOverlay)
		})
	})

	r.Get("/v1/live", s.handleLive)

	return r
}

func (s *Server) handleNames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"resources": s.Names()})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resource(chi.URLParam(r, "resource"))
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_RESOURCE", "unknown resource")
		return
	}
	writeJSON(w, http.StatusOK, res.Contract)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	form, err := s.stores.Form(name + ".form")
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Render(form))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	ls, err := s.stores.List(name + ".list")
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	ls.SetPagination(parsePagination(r))
	if err := ls.Fetch(r.Context()); err != nil {
		// Stale-while-error: surface the failure but include the last good
		// page so clients can keep rendering it.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":      err.Error(),
			"items":      ls.Response(),
			"pagination": ls.Pagination(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":      ls.Response(),
		"pagination": ls.Pagination(),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	ss, err := s.stores.Single(name + ".single")
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if err := ss.Fetch(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ss.Response())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, "")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, chi.URLParam(r, "id"))
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, id string) {
	name := chi.URLParam(r, "resource")
	form, err := s.stores.Form(name + ".form")
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if id != "" {
		values["id"] = id
	}

	var response map[string]any
	form.OnSuccess(func(resp map[string]any) { response = resp })
	err = form.Submit(r.Context(), values)
	if errors.Is(err, store.ErrValidation) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": form.Errors()})
		return
	}
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if ls, lerr := s.stores.List(name + ".list"); lerr == nil {
		ls.Invalidate()
	}
	status := http.StatusCreated
	if id != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, response)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	res, ok := s.resource(name)
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_RESOURCE", "unknown resource")
		return
	}
	if err := res.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if ls, err := s.stores.List(name + ".list"); err == nil {
		ls.Invalidate()
	}
	w.WriteHeader(http.StatusNoContent)
}

type actionRequest struct {
	Store   string         `json:"store"` // "list", "single", or "form"
	Action  store.Action   `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (s *Server) handleSetAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.Store == "" {
		req.Store = "list"
	}
	st, err := s.stores.Lookup(fmt.Sprintf("%s.%s", name, req.Store))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	if req.Action == "" {
		req.Action = store.ActionNone
	}
	st.SetAction(req.Action, req.Payload)
	writeJSON(w, http.StatusOK, map[string]any{"action": st.Action()})
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	variant := r.URL.Query().Get("store")
	if variant == "" {
		variant = "list"
	}
	st, err := s.stores.Lookup(fmt.Sprintf("%s.%s", name, variant))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action":  st.Action(),
		"payload": st.Payload(),
	})
}

// handleOverlay dispatches the resource's current action to its overlay
// component. A none action yields a null overlay; an unregistered store key
// yields a diagnostic node instead of an error status.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	s.mu.RLock()
	reg := s.overlays[name]
	s.mu.RUnlock()
	if reg == nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_RESOURCE", "unknown resource")
		return
	}
	variant := r.URL.Query().Get("store")
	if variant == "" {
		variant = "list"
	}
	node := action.DispatchKey(reg, s.stores, fmt.Sprintf("%s.%s", name, variant))
	writeJSON(w, http.StatusOK, map[string]any{"overlay": node})
}

// Config holds server configuration.
type Config struct {
	Port   int
	Server *Server
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s (%d resources registered)", addr, len(cfg.Server.Names()))

	srv := &http.Server{
		Addr:    addr,
		Handler: cfg.Server.Routes(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	return srv.ListenAndServe()
}
