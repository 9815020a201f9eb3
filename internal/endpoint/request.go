package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/conduit-lang/docapi/internal/hooks"
	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/verb"
	"github.com/conduit-lang/docapi/internal/web/query"
	"go.uber.org/zap"
)

// request carries one verb invocation through its hook chains
type request struct {
	e    *Endpoint
	r    *http.Request
	verb verb.Verb
	ctx  *hooks.Context
}

func (e *Endpoint) newRequest(r *http.Request, v verb.Verb) *request {
	ctx := hooks.NewContext(r.Context(), r, e.path, v).WithLogger(e.logger)
	return &request{e: e, r: r, verb: v, ctx: ctx}
}

// run runs hook for the request verb
func (rq *request) run(hook hooks.Hook, value any) (any, error) {
	return rq.e.hooks.Run(rq.ctx, hook, rq.verb, value)
}

// respond runs pre_response on a successful result
func (rq *request) respond(value any) (any, error) {
	out, err := rq.run(hooks.PreResponse, value)
	if err != nil {
		return rq.fail(err)
	}
	return out, nil
}

// fail routes err through pre_response_error. The taps may replace the
// error; any non-error value they produce leaves the original in place.
func (rq *request) fail(err error) (any, error) {
	err = classify(err)

	out, herr := rq.run(hooks.PreResponseError, err)
	if herr != nil {
		rq.ctx.Logger().Error("pre_response_error failed",
			zap.String("verb", rq.verb.String()),
			zap.NamedError("original", err),
			zap.Error(herr),
		)
		return nil, classify(herr)
	}

	if replaced, ok := out.(error); ok && replaced != nil {
		return nil, classify(replaced)
	}
	return nil, err
}

// filter runs the pre_filter chain of v starting from initial and casts the
// result against the model
func (rq *request) filter(v verb.Verb, initial query.Filter) (query.Filter, error) {
	out, err := rq.e.hooks.Run(rq.ctx, hooks.PreFilter, v, initial)
	if err != nil {
		return nil, err
	}
	f, err := toFilter(out)
	if err != nil {
		return nil, err
	}
	return rq.e.model.CastFilter(f)
}

func (rq *request) list() (any, error) {
	f, err := rq.filter(verb.List, query.Filter{})
	if err != nil {
		return rq.fail(err)
	}

	q := store.Query{
		Filter:     f,
		Pagination: query.ParsePagination(rq.r.URL.Query(), rq.e.options.Pagination),
		Populate:   rq.e.options.Populate,
		Fields:     rq.e.options.LimitFields,
	}

	docs, err := rq.e.store.Find(rq.ctx, rq.e.model, q)
	if err != nil {
		return rq.fail(fmt.Errorf("list %s: %w", rq.e.model.Name, err))
	}
	if docs == nil {
		docs = []store.Document{}
	}

	return rq.respond(docs)
}

func (rq *request) fetch(id string) (any, error) {
	doc, err := rq.load(id, rq.e.options.Populate)
	if err != nil {
		return rq.fail(err)
	}
	return rq.respond(doc)
}

// load retrieves the document with id through the fetch pre_filter chain
func (rq *request) load(id string, populate []store.Populate) (store.Document, error) {
	if id == "" {
		return nil, NewError(http.StatusBadRequest, "missing id")
	}

	f, err := rq.filter(verb.Fetch, query.Filter{store.IDField: id})
	if err != nil {
		return nil, err
	}

	doc, err := rq.e.store.FindOne(rq.ctx, rq.e.model, f, populate)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", rq.e.model.Name, id, err)
	}
	return doc, nil
}

// retrieve loads the document a mutation applies to and runs post_retrieve
func (rq *request) retrieve(id string) (store.Document, error) {
	doc, err := rq.load(id, nil)
	if err != nil {
		return nil, err
	}

	out, err := rq.run(hooks.PostRetrieve, doc)
	if err != nil {
		return nil, err
	}
	return toDocument(out)
}

// prepare casts a document from the body, saves its embedded relations and
// runs pre_save
func (rq *request) prepare(doc store.Document) (store.Document, error) {
	if err := rq.e.model.CastDocument(doc); err != nil {
		return nil, err
	}

	doc, err := rq.cascade(doc)
	if err != nil {
		return nil, err
	}

	out, err := rq.run(hooks.PreSave, doc)
	if err != nil {
		return nil, err
	}
	return toDocument(out)
}

func (rq *request) post() (any, error) {
	doc, err := decodeObject(rq.r)
	if err != nil {
		return rq.fail(err)
	}

	if doc, err = rq.prepare(doc); err != nil {
		return rq.fail(err)
	}

	created, err := rq.e.store.Insert(rq.ctx, rq.e.model, doc)
	if err != nil {
		return rq.fail(fmt.Errorf("create %s: %w", rq.e.model.Name, err))
	}

	return rq.respond(created)
}

func (rq *request) bulkPost() (any, error) {
	docs, err := decodeArray(rq.r)
	if err != nil {
		return rq.fail(err)
	}

	for i, doc := range docs {
		prepared, err := rq.prepare(doc)
		if err != nil {
			return rq.fail(fmt.Errorf("document %d: %w", i, err))
		}
		docs[i] = prepared
	}

	created, err := rq.e.store.InsertMany(rq.ctx, rq.e.model, docs)
	if err != nil {
		return rq.fail(fmt.Errorf("bulk create %s: %w", rq.e.model.Name, err))
	}

	return rq.respond(created)
}

func (rq *request) put(id string) (any, error) {
	doc, err := rq.retrieve(id)
	if err != nil {
		return rq.fail(err)
	}

	body, err := decodeObject(rq.r)
	if err != nil {
		return rq.fail(err)
	}

	merged := doc.Clone()
	for k, v := range body {
		if k == store.IDField {
			continue
		}
		merged[k] = v
	}

	if merged, err = rq.prepare(merged); err != nil {
		return rq.fail(err)
	}

	updated, err := rq.e.store.Update(rq.ctx, rq.e.model, id, merged)
	if err != nil {
		return rq.fail(fmt.Errorf("update %s %s: %w", rq.e.model.Name, id, err))
	}

	return rq.respond(updated)
}

func (rq *request) delete(id string) (any, error) {
	doc, err := rq.retrieve(id)
	if err != nil {
		return rq.fail(err)
	}

	if err := rq.e.store.Delete(rq.ctx, rq.e.model, id); err != nil {
		return rq.fail(fmt.Errorf("delete %s %s: %w", rq.e.model.Name, id, err))
	}

	return rq.respond(doc)
}

var errEmptyBody = NewError(http.StatusBadRequest, "request body is required")

// decodeObject reads a JSON object from the request body
func decodeObject(r *http.Request) (store.Document, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, errEmptyBody
	}

	var doc store.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		return nil, decodeError(err)
	}
	if doc == nil {
		return nil, NewError(http.StatusBadRequest, "request body must be a JSON object")
	}
	return doc, nil
}

// decodeArray reads a JSON array of objects from the request body
func decodeArray(r *http.Request) ([]store.Document, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, errEmptyBody
	}

	var docs []store.Document
	if err := json.NewDecoder(r.Body).Decode(&docs); err != nil {
		return nil, decodeError(err)
	}
	if len(docs) == 0 {
		return nil, NewError(http.StatusBadRequest, "request body must be a non-empty JSON array")
	}
	for i, d := range docs {
		if d == nil {
			return nil, Errorf(http.StatusBadRequest, "document %d must be a JSON object", i)
		}
	}
	return docs, nil
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return Wrap(err, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		return errEmptyBody
	}
	return Wrap(err, http.StatusBadRequest, "invalid JSON body")
}
