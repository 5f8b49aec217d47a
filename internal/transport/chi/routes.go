// Routing glue for api/openapi.yaml in the shape oapi-codegen emits for
// chi-server: a ServerInterface, typed query params and a wrapper that binds
// parameters with oapi-codegen/runtime.
//
// It is maintained by hand. Request and response bodies here are raw image
// bytes and DTOs with domain-specific nil handling, which the generated
// strict types do not express, so regenerating would only replace this
// wrapper. TestHandler_MatchesOpenAPI keeps the two in step.
package chi

import (
	"fmt"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// OwnerParams carries the asserted owner of a call.
type OwnerParams struct {
	Owner *string `form:"owner,omitempty" json:"owner,omitempty"`
}

// OwnerPredictionParams adds the caller-chosen prediction id.
type OwnerPredictionParams struct {
	Owner        *string `form:"owner,omitempty" json:"owner,omitempty"`
	PredictionID *string `form:"prediction_id,omitempty" json:"prediction_id,omitempty"`
}

// UsageParams selects the usage period.
type UsageParams struct {
	Period *string `form:"period,omitempty" json:"period,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (PUT /v1/images/{name})
	StoreImage(w http.ResponseWriter, r *http.Request, name string, params OwnerPredictionParams)
	// (GET /v1/images/{name})
	GetImage(w http.ResponseWriter, r *http.Request, name string, params OwnerParams)
	// (GET /v1/images)
	ListImages(w http.ResponseWriter, r *http.Request, params OwnerParams)
	// (DELETE /v1/images/{name})
	DeleteImage(w http.ResponseWriter, r *http.Request, name string, params OwnerParams)
	// (POST /v1/images/{name}/detections)
	DetectStoredImage(w http.ResponseWriter, r *http.Request, name string, params OwnerPredictionParams)
	// (POST /v1/detections/{name})
	DetectInlineImage(w http.ResponseWriter, r *http.Request, name string, params OwnerPredictionParams)
	// (POST /v1/subjects/{subject}/tags)
	AddTag(w http.ResponseWriter, r *http.Request, subject string)
	// (GET /v1/subjects/{subject}/tags)
	GetTags(w http.ResponseWriter, r *http.Request, subject string)
	// (GET /v1/results)
	GetResults(w http.ResponseWriter, r *http.Request, params OwnerParams)
	// (GET /v1/usage)
	GetUsage(w http.ResponseWriter, r *http.Request, params UsageParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ParamError reports a path or query parameter that failed to bind.
type ParamError struct {
	ParamName string
	Err       error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *ParamError) Unwrap() error { return e.Err }

// ServerOptions configures Handler.
type ServerOptions struct {
	BaseRouter       chirouter.Router
	Middlewares      []func(http.Handler) http.Handler
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// DefaultParamErrorHandler answers binding failures with 400.
func DefaultParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
}

// Handler mounts si on a chi router according to options.
func Handler(si ServerInterface, options ServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chirouter.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = DefaultParamErrorHandler
	}
	wrapper := serverInterfaceWrapper{
		handler:          si,
		middlewares:      options.Middlewares,
		errorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Group(func(r chirouter.Router) {
		r.Put("/v1/images/{name}", wrapper.StoreImage)
		r.Get("/v1/images/{name}", wrapper.GetImage)
		r.Get("/v1/images", wrapper.ListImages)
		r.Delete("/v1/images/{name}", wrapper.DeleteImage)
		r.Post("/v1/images/{name}/detections", wrapper.DetectStoredImage)
		r.Post("/v1/detections/{name}", wrapper.DetectInlineImage)
		r.Post("/v1/subjects/{subject}/tags", wrapper.AddTag)
		r.Get("/v1/subjects/{subject}/tags", wrapper.GetTags)
		r.Get("/v1/results", wrapper.GetResults)
		r.Get("/v1/usage", wrapper.GetUsage)
		r.Get("/health", wrapper.HealthCheck)
		r.Get("/metrics", wrapper.Metrics)
	})

	return r
}

type serverInterfaceWrapper struct {
	handler          ServerInterface
	middlewares      []func(http.Handler) http.Handler
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (sw *serverInterfaceWrapper) StoreImage(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathParam(w, r, "name")
	if !ok {
		return
	}
	params, ok := sw.ownerPredictionParams(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.StoreImage(w, r, name, params)
	})
}

func (sw *serverInterfaceWrapper) GetImage(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathParam(w, r, "name")
	if !ok {
		return
	}
	params, ok := sw.ownerParams(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.GetImage(w, r, name, params)
	})
}

func (sw *serverInterfaceWrapper) ListImages(w http.ResponseWriter, r *http.Request) {
	params, ok := sw.ownerParams(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.ListImages(w, r, params)
	})
}

func (sw *serverInterfaceWrapper) DeleteImage(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathParam(w, r, "name")
	if !ok {
		return
	}
	params, ok := sw.ownerParams(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.DeleteImage(w, r, name, params)
	})
}

func (sw *serverInterfaceWrapper) DetectStoredImage(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathParam(w, r, "name")
	if !ok {
		return
	}
	params, ok := sw.ownerPredictionParams(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.DetectStoredImage(w, r, name, params)
	})
}

func (sw *serverInterfaceWrapper) DetectInlineImage(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathParam(w, r, "name")
	if !ok {
		return
	}
	params, ok := sw.ownerPredictionParams(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.DetectInlineImage(w, r, name, params)
	})
}

func (sw *serverInterfaceWrapper) AddTag(w http.ResponseWriter, r *http.Request) {
	subject, ok := sw.pathParam(w, r, "subject")
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.AddTag(w, r, subject)
	})
}

func (sw *serverInterfaceWrapper) GetTags(w http.ResponseWriter, r *http.Request) {
	subject, ok := sw.pathParam(w, r, "subject")
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.GetTags(w, r, subject)
	})
}

func (sw *serverInterfaceWrapper) GetResults(w http.ResponseWriter, r *http.Request) {
	params, ok := sw.ownerParams(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.GetResults(w, r, params)
	})
}

func (sw *serverInterfaceWrapper) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params UsageParams
	if !sw.queryParam(w, r, "period", &params.Period) {
		return
	}
	sw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		sw.handler.GetUsage(w, r, params)
	})
}

func (sw *serverInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	sw.serve(w, r, sw.handler.HealthCheck)
}

func (sw *serverInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	sw.serve(w, r, sw.handler.Metrics)
}

func (sw *serverInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	var handler http.Handler = fn
	for _, middleware := range sw.middlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

func (sw *serverInterfaceWrapper) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chirouter.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		sw.errorHandlerFunc(w, r, &ParamError{ParamName: name, Err: err})
		return "", false
	}
	return value, true
}

func (sw *serverInterfaceWrapper) queryParam(w http.ResponseWriter, r *http.Request, name string, dest **string) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		sw.errorHandlerFunc(w, r, &ParamError{ParamName: name, Err: err})
		return false
	}
	return true
}

func (sw *serverInterfaceWrapper) ownerParams(w http.ResponseWriter, r *http.Request) (OwnerParams, bool) {
	var params OwnerParams
	ok := sw.queryParam(w, r, "owner", &params.Owner)
	return params, ok
}

func (sw *serverInterfaceWrapper) ownerPredictionParams(w http.ResponseWriter, r *http.Request) (OwnerPredictionParams, bool) {
	var params OwnerPredictionParams
	if !sw.queryParam(w, r, "owner", &params.Owner) {
		return params, false
	}
	ok := sw.queryParam(w, r, "prediction_id", &params.PredictionID)
	return params, ok
}
