package http

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

var (
	swaggerOnce sync.Once
	swaggerDoc  *openapi3.T
	swaggerErr  error
)

// GetSwagger parses the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		swaggerDoc, swaggerErr = openapi3.NewLoader().LoadFromData(rawSpec)
	})
	return swaggerDoc, swaggerErr
}

// LocationParams are the query parameters naming a breakpoint.
type LocationParams struct {
	File string `form:"file" json:"file"`
	Line int    `form:"line" json:"line"`
}

// IgnoreParams adds the number of hits to skip.
type IgnoreParams struct {
	LocationParams
	Count int `form:"count" json:"count"`
}

// ListBreakpointsParams optionally restricts the listing to one file.
type ListBreakpointsParams struct {
	File *string `form:"file,omitempty" json:"file,omitempty"`
}

// SubscribeEventsParams optionally filters the stream by notification kind.
type SubscribeEventsParams struct {
	Kinds *string `form:"kinds,omitempty" json:"kinds,omitempty"`
}

// ServerInterface is the set of operations declared in openapi.yaml.
type ServerInterface interface {
	Start(w http.ResponseWriter, r *http.Request)
	ListBreakpoints(w http.ResponseWriter, r *http.Request, params ListBreakpointsParams)
	ToggleBreakpoint(w http.ResponseWriter, r *http.Request, params LocationParams)
	TemporaryBreakpoint(w http.ResponseWriter, r *http.Request, params LocationParams)
	EnableBreakpoint(w http.ResponseWriter, r *http.Request, params LocationParams)
	DisableBreakpoint(w http.ResponseWriter, r *http.Request, params LocationParams)
	IgnoreBreakpoint(w http.ResponseWriter, r *http.Request, params IgnoreParams)
	ClearBreakpoint(w http.ResponseWriter, r *http.Request, params LocationParams)
	Run(w http.ResponseWriter, r *http.Request)
	Step(w http.ResponseWriter, r *http.Request)
	Next(w http.ResponseWriter, r *http.Request)
	Return(w http.ResponseWriter, r *http.Request)
	GetPosition(w http.ResponseWriter, r *http.Request)
	GetState(w http.ResponseWriter, r *http.Request)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, params SubscribeEventsParams)
	GetHealth(w http.ResponseWriter, r *http.Request)
	GetInfo(w http.ResponseWriter, r *http.Request)
}

// ParamError reports a query parameter that failed to bind.
type ParamError struct {
	Param string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %v", e.Param, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// wrapper binds query parameters before calling the handler.
type wrapper struct {
	handler ServerInterface
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

func (sw *wrapper) bind(r *http.Request, name string, required bool, dest any) error {
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dest); err != nil {
		return &ParamError{Param: name, Err: err}
	}
	return nil
}

func (sw *wrapper) location(r *http.Request) (LocationParams, error) {
	var p LocationParams
	if err := sw.bind(r, "file", true, &p.File); err != nil {
		return p, err
	}
	if err := sw.bind(r, "line", true, &p.Line); err != nil {
		return p, err
	}
	if p.File == "" {
		return p, &ParamError{Param: "file", Err: fmt.Errorf("must not be empty")}
	}
	if p.Line < 1 {
		return p, &ParamError{Param: "line", Err: fmt.Errorf("must be positive, got %d", p.Line)}
	}
	return p, nil
}

func (sw *wrapper) withLocation(fn func(http.ResponseWriter, *http.Request, LocationParams)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := sw.location(r)
		if err != nil {
			sw.onError(w, r, err)
			return
		}
		fn(w, r, p)
	}
}

func (sw *wrapper) ignoreBreakpoint(w http.ResponseWriter, r *http.Request) {
	loc, err := sw.location(r)
	if err != nil {
		sw.onError(w, r, err)
		return
	}
	p := IgnoreParams{LocationParams: loc}
	if err := sw.bind(r, "count", true, &p.Count); err != nil {
		sw.onError(w, r, err)
		return
	}
	sw.handler.IgnoreBreakpoint(w, r, p)
}

func (sw *wrapper) listBreakpoints(w http.ResponseWriter, r *http.Request) {
	var p ListBreakpointsParams
	if err := sw.bind(r, "file", false, &p.File); err != nil {
		sw.onError(w, r, err)
		return
	}
	sw.handler.ListBreakpoints(w, r, p)
}

func (sw *wrapper) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	var p SubscribeEventsParams
	if err := sw.bind(r, "kinds", false, &p.Kinds); err != nil {
		sw.onError(w, r, err)
		return
	}
	sw.handler.SubscribeEvents(w, r, p)
}

// HandlerFromMux registers every operation on r.
func HandlerFromMux(si ServerInterface, r chi.Router, onError func(http.ResponseWriter, *http.Request, error)) http.Handler {
	sw := &wrapper{handler: si, onError: onError}

	r.Post("/start", si.Start)
	r.Get("/breakpoints", sw.listBreakpoints)
	r.Post("/breakpoints/toggle", sw.withLocation(si.ToggleBreakpoint))
	r.Post("/breakpoints/temporary", sw.withLocation(si.TemporaryBreakpoint))
	r.Post("/breakpoints/enable", sw.withLocation(si.EnableBreakpoint))
	r.Post("/breakpoints/disable", sw.withLocation(si.DisableBreakpoint))
	r.Post("/breakpoints/ignore", sw.ignoreBreakpoint)
	r.Post("/breakpoints/clear", sw.withLocation(si.ClearBreakpoint))
	r.Post("/run", si.Run)
	r.Post("/step", si.Step)
	r.Post("/next", si.Next)
	r.Post("/return", si.Return)
	r.Get("/position", si.GetPosition)
	r.Get("/state", si.GetState)
	r.Get("/events", sw.subscribeEvents)
	r.Get("/health", si.GetHealth)
	r.Get("/info", si.GetInfo)
	return r
}
