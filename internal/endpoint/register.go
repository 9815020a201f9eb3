package endpoint

import (
	"net/http"

	"github.com/conduit-lang/docapi/internal/verb"
	"github.com/conduit-lang/docapi/internal/web/middleware"
	"github.com/conduit-lang/docapi/internal/web/response"
	"github.com/conduit-lang/docapi/internal/web/router"
	"go.uber.org/zap"
)

// binding ties a verb to its HTTP route
type binding struct {
	verb    verb.Verb
	method  string
	pattern string
	status  int
}

var bindings = []binding{
	{verb.Fetch, http.MethodGet, "/{" + router.IDParam + "}", http.StatusOK},
	{verb.List, http.MethodGet, "", http.StatusOK},
	{verb.Post, http.MethodPost, "", http.StatusCreated},
	{verb.BulkPost, http.MethodPost, "/bulk", http.StatusCreated},
	{verb.Put, http.MethodPut, "/{" + router.IDParam + "}", http.StatusOK},
	{verb.Delete, http.MethodDelete, "/{" + router.IDParam + "}", http.StatusOK},
}

// Register binds the routes of every served verb on r, each behind its
// middleware chain. POST {path}/bulk is bound only when bulk create is
// enabled.
func (e *Endpoint) Register(r *router.Router) {
	for _, b := range bindings {
		if b.verb == verb.BulkPost && !e.options.AllowBulkPost {
			continue
		}

		pattern := router.Join(e.path, b.pattern)
		h := e.middleware.Handler(b.verb, e.handler(b.verb, b.status))

		r.Handle(b.method, pattern, h).
			WithResource(e.path, b.verb.String(), e.middleware.Len(b.verb)).
			Named(e.path + "." + b.verb.String())
	}

	e.logger.Info("registered endpoint",
		zap.String("collection", e.model.Collection),
		zap.Bool("bulk_post", e.options.AllowBulkPost),
		zap.Int("query_params", len(e.options.QueryParams)),
	)
}

// Handler returns the HTTP handler of v without its middleware chain
func (e *Endpoint) Handler(v verb.Verb) http.Handler {
	for _, b := range bindings {
		if b.verb == v {
			return e.handler(v, b.status)
		}
	}
	return http.NotFoundHandler()
}

func (e *Endpoint) handler(v verb.Verb, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if trace, ok := middleware.TraceFrom(r.Context()); ok {
			trace.SetMethod(v.String())
		}

		out, err := e.serve(v, r)
		if err != nil {
			e.renderFailure(w, v, err)
			return
		}

		if v == verb.Delete {
			response.RenderEmpty(w, status)
			return
		}
		if err := response.RenderJSON(w, status, out); err != nil {
			e.logger.Error("failed to render response",
				zap.String("verb", v.String()),
				zap.Error(err),
			)
			response.RenderInternalError(w)
		}
	})
}

func (e *Endpoint) serve(v verb.Verb, r *http.Request) (any, error) {
	id := router.GetPathParam(r, router.IDParam)

	switch v {
	case verb.List:
		return e.List(r)
	case verb.Fetch:
		return e.Fetch(r, id)
	case verb.Post:
		return e.Post(r)
	case verb.BulkPost:
		return e.BulkPost(r)
	case verb.Put:
		return e.Put(r, id)
	case verb.Delete:
		return e.Delete(r, id)
	}
	return nil, NewError(http.StatusMethodNotAllowed, "unsupported verb")
}

// renderFailure reports err with its status and message. Failures without
// a status become a 500 with an empty body. Bulk create failures are
// rendered as JSON.
func (e *Endpoint) renderFailure(w http.ResponseWriter, v verb.Verb, err error) {
	code, message, ok := StatusCode(err)
	if !ok {
		e.logger.Error("request failed",
			zap.String("verb", v.String()),
			zap.Error(err),
		)
		response.RenderInternalError(w)
		return
	}

	if code >= http.StatusInternalServerError {
		e.logger.Error("request failed", zap.String("verb", v.String()), zap.Int("status", code), zap.Error(err))
	} else {
		e.logger.Debug("request rejected", zap.String("verb", v.String()), zap.Int("status", code), zap.Error(err))
	}

	if v == verb.BulkPost {
		response.RenderFailure(w, code, message)
		return
	}
	response.RenderText(w, code, message)
}
