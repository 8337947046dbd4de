package embedhttp

import (
	"sort"
	"strings"
	"sync"
)

// Common MIME types for typed actions.
const (
	MIMEGeneric = ""
	MIMEHTML    = "text/html"
	MIMEText    = "text/plain"
	MIMEJSON    = "application/json"
)

// action is one registry entry. An empty mime marks a generic action.
type action struct {
	handler HandlerFunc
	mime    string
}

// actionTable maps normalized routes to actions for one method.
type actionTable struct {
	mu      sync.RWMutex
	entries map[string]action
}

func newActionTable() *actionTable {
	return &actionTable{entries: make(map[string]action)}
}

func (t *actionTable) set(route string, a action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[route] = a
}

func (t *actionTable) remove(route string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[route]
	delete(t.entries, route)
	return ok
}

func (t *actionTable) get(route string) (action, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.entries[route]
	return a, ok
}

func (t *actionTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Registry binds route names to actions, with separate tables for GET and
// POST. It is safe for concurrent registration and lookup; the table lock is
// held only for the map access, never while an action runs.
type Registry struct {
	get  *actionTable
	post *actionTable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		get:  newActionTable(),
		post: newActionTable(),
	}
}

// NormalizeRoute turns a route name into the path it is matched against:
// "x" becomes "/x". A name that already starts with '/' is kept.
func NormalizeRoute(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}

func (r *Registry) table(m Method) *actionTable {
	switch m {
	case MethodGet:
		return r.get
	case MethodPost:
		return r.post
	default:
		return nil
	}
}

// Register binds h to name for method m. An empty mime registers a generic
// action. Registering the same method and name again replaces the previous
// action. Methods other than GET and POST are ignored and reported as false.
func (r *Registry) Register(m Method, name string, mime string, h HandlerFunc) bool {
	t := r.table(m)
	if t == nil || h == nil {
		return false
	}
	t.set(NormalizeRoute(name), action{handler: h, mime: mime})
	return true
}

// Unregister removes the action bound to name for method m.
func (r *Registry) Unregister(m Method, name string) bool {
	t := r.table(m)
	if t == nil {
		return false
	}
	return t.remove(NormalizeRoute(name))
}

// Lookup returns the handler and declared MIME type bound to path.
func (r *Registry) Lookup(m Method, path string) (HandlerFunc, string, bool) {
	a, ok := r.lookup(m, path)
	return a.handler, a.mime, ok
}

func (r *Registry) lookup(m Method, path string) (action, bool) {
	t := r.table(m)
	if t == nil {
		return action{}, false
	}
	return t.get(path)
}

// Len returns the number of registered actions across both tables.
func (r *Registry) Len() int {
	return r.get.len() + r.post.len()
}

// Route describes one registered action.
type Route struct {
	Method Method
	Path   string
	MIME   string
}

// Routes returns all registered routes, sorted by path then method.
func (r *Registry) Routes() []Route {
	var routes []Route
	for _, m := range []Method{MethodGet, MethodPost} {
		t := r.table(m)
		t.mu.RLock()
		for path, a := range t.entries {
			routes = append(routes, Route{Method: m, Path: path, MIME: a.mime})
		}
		t.mu.RUnlock()
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}
