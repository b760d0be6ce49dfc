package command

import (
	"fmt"
	"strings"
	"sync"
)

// ParamType 是参数在序列化边界上的类型名。
type ParamType string

const (
	ParamInteger ParamType = "integer"
	ParamString  ParamType = "string"
	ParamObject  ParamType = "object"
	ParamBoolean ParamType = "boolean"
)

// Param 描述一个命令参数。
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
}

// Descriptor 是单个操作的机器可读描述，属于静态目录，不在运行时计算。
type Descriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	ReadOnly    bool    `json:"readOnly"`
}

// Operation names.
const (
	OpStart        = "start"
	OpStop         = "stop"
	OpAddJSONRoute = "addJsonRoute"
	OpAddTextRoute = "addTextRoute"
	OpAddStaticDir = "addStaticDir"
	OpGetPort      = "getPort"
	OpGetURL       = "getURL"
	OpIsRunning    = "isRunning"
)

var descriptors = []Descriptor{
	{
		Name:        OpStart,
		Description: "Start the HTTP server, replaying every registered route and static directory. Returns the bound port and base URL.",
		Params: []Param{
			{Name: "port", Type: ParamInteger, Description: "Port to listen on; 0 picks any free port", Default: 0},
		},
	},
	{
		Name:        OpStop,
		Description: "Stop the HTTP server. Registered routes and static directories are kept for the next start. No-op when not running.",
	},
	{
		Name:        OpAddJSONRoute,
		Description: "Register a route answering with a fixed JSON body. Applied immediately when the server is running.",
		Params: []Param{
			{Name: "method", Type: ParamString, Description: "HTTP method (GET, POST, PUT, DELETE)", Required: true},
			{Name: "path", Type: ParamString, Description: "Route path, e.g. /api/health", Required: true},
			{Name: "responseBody", Type: ParamObject, Description: "JSON body returned by the route", Required: true},
			{Name: "statusCode", Type: ParamInteger, Description: "HTTP status code", Default: 200},
		},
	},
	{
		Name:        OpAddTextRoute,
		Description: "Register a route answering 200 with a fixed text body. Applied immediately when the server is running.",
		Params: []Param{
			{Name: "method", Type: ParamString, Description: "HTTP method (GET, POST, PUT, DELETE)", Required: true},
			{Name: "path", Type: ParamString, Description: "Route path, e.g. /hello", Required: true},
			{Name: "responseText", Type: ParamString, Description: "Text body returned by the route", Required: true},
			{Name: "contentType", Type: ParamString, Description: "Content-Type header", Default: "text/plain"},
		},
	},
	{
		Name:        OpAddStaticDir,
		Description: "Serve a filesystem directory under a URL prefix. Mounted immediately when the server is running.",
		Params: []Param{
			{Name: "urlPath", Type: ParamString, Description: "URL prefix, e.g. /static", Required: true},
			{Name: "fsPath", Type: ParamString, Description: "Absolute filesystem path of the directory", Required: true},
		},
	},
	{
		Name:        OpGetPort,
		Description: "Return the bound port, or null when the server is not running.",
		ReadOnly:    true,
	},
	{
		Name:        OpGetURL,
		Description: "Return the base URL (http://localhost:<port>), or null when no port is bound.",
		ReadOnly:    true,
	},
	{
		Name:        OpIsRunning,
		Description: "Report whether the server is running.",
		ReadOnly:    true,
	},
}

var catalog = newRegistry(descriptors)

type registry struct {
	mu      sync.RWMutex
	ordered []Descriptor
	byName  map[string]int
}

func newRegistry(items []Descriptor) *registry {
	r := &registry{byName: make(map[string]int, len(items))}
	for _, item := range items {
		r.mustRegister(item)
	}
	return r
}

func (r *registry) register(desc Descriptor) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("operation name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("operation %s already registered", name)
	}
	r.byName[name] = len(r.ordered)
	r.ordered = append(r.ordered, desc)
	return nil
}

func (r *registry) mustRegister(desc Descriptor) {
	if err := r.register(desc); err != nil {
		panic(err)
	}
}

func (r *registry) resolve(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return Descriptor{}, false
	}
	return cloneDescriptor(r.ordered[idx]), true
}

func (r *registry) list() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, len(r.ordered))
	for i, desc := range r.ordered {
		result[i] = cloneDescriptor(desc)
	}
	return result
}

func cloneDescriptor(desc Descriptor) Descriptor {
	desc.Params = append([]Param(nil), desc.Params...)
	return desc
}

// Catalog 按表定义顺序返回所有操作描述。
func Catalog() []Descriptor {
	return catalog.list()
}

// Lookup 返回指定操作的描述。
func Lookup(name string) (Descriptor, bool) {
	return catalog.resolve(name)
}
