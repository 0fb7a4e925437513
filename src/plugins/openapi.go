package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	reagent "github.com/Protocol-Lattice/go-reagent"
)

// pathParamPattern matches {param} placeholders in an OpenAPI path.
var pathParamPattern = regexp.MustCompile(`\{[^{}]+\}`)

// FromOpenAPI loads an OpenAPI 3 document from specURL and exposes every
// operation it declares as one tool in one group. Tool names are
// "<groupID>.<operationId>"; operations without an operationId fall back to
// "<method>_<path>". An empty description falls back to the document's info
// section.
func FromOpenAPI(ctx context.Context, groupID, description, specURL string, opts ...Option) (reagent.Group, error) {
	return fromOpenAPIURL(ctx, newConfig(opts...), groupID, description, specURL)
}

// FromOpenAPIData is FromOpenAPI over an in-memory document, for specs that
// ship with the binary. The document must declare an absolute server URL.
func FromOpenAPIData(ctx context.Context, groupID, description string, data []byte, opts ...Option) (reagent.Group, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return reagent.Group{}, fmt.Errorf("load openapi document: %w", err)
	}
	return groupFromDoc(ctx, newConfig(opts...), groupID, description, doc, nil)
}

func fromOpenAPIURL(ctx context.Context, cfg *config, groupID, description, specURL string) (reagent.Group, error) {
	specURI, err := url.Parse(specURL)
	if err != nil {
		return reagent.Group{}, fmt.Errorf("parse spec url %q: %w", specURL, err)
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromURI(specURI)
	if err != nil {
		return reagent.Group{}, fmt.Errorf("load openapi document %s: %w", specURL, err)
	}
	return groupFromDoc(ctx, cfg, groupID, description, doc, specURI)
}

func groupFromDoc(ctx context.Context, cfg *config, groupID, description string, doc *openapi3.T, specURI *url.URL) (reagent.Group, error) {
	if strings.TrimSpace(groupID) == "" {
		return reagent.Group{}, errors.New("plugin group id is empty")
	}
	if err := doc.Validate(ctx); err != nil {
		return reagent.Group{}, fmt.Errorf("validate openapi document: %w", err)
	}
	if description == "" {
		description = docDescription(doc)
	}
	base, err := baseEndpoint(doc, specURI)
	if err != nil {
		return reagent.Group{}, fmt.Errorf("plugin %s: %w", groupID, err)
	}

	group := reagent.Group{ID: groupID, Description: description}
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, po := range pathOperations(item) {
			if po.op == nil {
				continue
			}
			group.Tools = append(group.Tools, newHTTPTool(cfg, groupID, path, po.method, po.op, base))
		}
	}
	if len(group.Tools) == 0 {
		return reagent.Group{}, fmt.Errorf("plugin %s: document declares no operations", groupID)
	}
	// Paths.Map iterates in random order; keep the prompt listing stable.
	sort.Slice(group.Tools, func(i, j int) bool {
		return group.Tools[i].Spec().Name < group.Tools[j].Spec().Name
	})
	return group, nil
}

func docDescription(doc *openapi3.T) string {
	if doc.Info == nil {
		return ""
	}
	if doc.Info.Description != "" {
		return doc.Info.Description
	}
	return doc.Info.Title
}

type pathOperation struct {
	method string
	op     *openapi3.Operation
}

func pathOperations(item *openapi3.PathItem) []pathOperation {
	return []pathOperation{
		{http.MethodConnect, item.Connect},
		{http.MethodDelete, item.Delete},
		{http.MethodGet, item.Get},
		{http.MethodHead, item.Head},
		{http.MethodOptions, item.Options},
		{http.MethodPatch, item.Patch},
		{http.MethodPost, item.Post},
		{http.MethodPut, item.Put},
		{http.MethodTrace, item.Trace},
	}
}

func operationName(op *openapi3.Operation, method, path string) string {
	if op.OperationID != "" {
		return op.OperationID
	}
	return strings.ToLower(method) + "_" + path
}

func operationDesc(op *openapi3.Operation) string {
	if op.Description != "" {
		return op.Description
	}
	return op.Summary
}

// baseEndpoint picks the document's first server URL and resolves it against
// the document's own location, so relative server paths work when fetched.
func baseEndpoint(doc *openapi3.T, specURI *url.URL) (*url.URL, error) {
	raw := "/"
	if len(doc.Servers) != 0 && doc.Servers[0].URL != "" {
		raw = doc.Servers[0].URL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", raw, err)
	}
	if specURI != nil {
		base = specURI.ResolveReference(base)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("no absolute server url, got %q", raw)
	}
	return base, nil
}

// operation is the callable form of a single OpenAPI operation.
type operation struct {
	method  string
	base    *url.URL
	path    string
	hasBody bool
}

func newHTTPTool(cfg *config, groupID, path, method string, op *openapi3.Operation, base *url.URL) reagent.Tool {
	o := operation{
		method:  method,
		base:    base,
		path:    path,
		hasBody: op.RequestBody != nil || bodyMethod(method),
	}
	name := groupID + "." + operationName(op, method, path)
	return reagent.NewTool(name, operationDesc(op), func(ctx context.Context, input string) (string, error) {
		return o.call(ctx, cfg, input)
	})
}

func bodyMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// call routes the free-text input into the request. A path with {param}
// placeholders takes the input there; otherwise body-carrying operations send
// it as the request body and the rest pass it as the "input" query parameter.
func (o operation) call(ctx context.Context, cfg *config, input string) (string, error) {
	path := o.path
	inPath := pathParamPattern.MatchString(path)
	if inPath {
		path = pathParamPattern.ReplaceAllLiteralString(path, url.PathEscape(input))
	}

	endpoint := *o.base
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path

	var body io.Reader
	switch {
	case inPath:
	case o.hasBody:
		body = strings.NewReader(input)
	default:
		q := endpoint.Query()
		q.Set("input", input)
		endpoint.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, o.method, endpoint.String(), body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		if json.Valid([]byte(input)) {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "text/plain")
		}
	}
	req.Header.Set("User-Agent", cfg.userAgent)

	resp, err := cfg.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return string(payload), nil
}
