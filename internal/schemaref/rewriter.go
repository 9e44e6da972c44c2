// Package schemaref rewrites schema cross-references so that every
// document a tenant fetches through the proxy keeps resolving through the
// proxy: location attributes pointing at sibling schemas are replaced with
// proxy URLs carrying the owner's key and the resolved absolute target.
package schemaref

import (
	"errors"
	"net/url"
	"strings"

	"github.com/beevik/etree"

	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/uri"
)

// ErrUnsupportedSchemaType reports a schema type no handler is registered
// for.
var ErrUnsupportedSchemaType = errors.New("unsupported schema type")

// Request carries everything a rewrite needs: the stored schema, the
// owner's key for the rewritten links, and the proxy endpoint the links
// must point back at.
type Request struct {
	Schema     *core.Schema
	UserKey    string
	ServiceURL string
	SchemaPath string
}

// Handler rewrites one schema format. The returned document replaces the
// stored body on the wire.
type Handler func(Request) (string, error)

var handlers = map[core.SchemaType]Handler{
	core.SchemaTypeXML:  rewriteXMLSchema,
	core.SchemaTypeJSON: passthrough,
}

// Rewrite dispatches on the schema's type.
func Rewrite(req Request) (string, error) {
	h, ok := handlers[req.Schema.SchemaType]
	if !ok {
		return "", ErrUnsupportedSchemaType
	}
	return h(req)
}

// refElements are the XSD composition elements whose schemaLocation is a
// reference to another schema document.
var refElements = map[string]bool{
	"import":   true,
	"include":  true,
	"redefine": true,
}

// rewriteXMLSchema walks the direct children of the schema root and points
// every import/include/redefine location back at the proxy. Relative
// locations are resolved against the schema's own URI first, so the proxy
// query always carries an absolute target.
func rewriteXMLSchema(req Request) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(req.Schema.Schema); err != nil {
		return "", err
	}
	root := doc.Root()
	if root == nil {
		return req.Schema.Schema, nil
	}

	for _, el := range root.ChildElements() {
		if !refElements[el.Tag] {
			continue
		}
		loc := el.SelectAttr("schemaLocation")
		if loc == nil || loc.Value == "" {
			continue
		}
		target, err := uri.Resolve(req.Schema.URI, loc.Value)
		if err != nil {
			continue
		}
		loc.Value = proxyURL(req, target)
	}

	return doc.WriteToString()
}

// passthrough serves the stored body untouched; embedded $ref values are
// already absolute in stored JSON schemas.
func passthrough(req Request) (string, error) {
	return req.Schema.Schema, nil
}

func proxyURL(req Request, target string) string {
	q := url.Values{}
	q.Set("key", req.UserKey)
	q.Set("ns", req.Schema.Namespace)
	q.Set("uri", target)
	return strings.TrimRight(req.ServiceURL, "/") + req.SchemaPath + "?" + q.Encode()
}
