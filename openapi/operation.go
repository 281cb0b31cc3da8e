package openapi

import (
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
)

type Operation struct {
	doc    *Document
	method string
	path   string
	op     *openapi3.Operation
}

func (d *Document) Document(method, path string) *Operation {
	return &Operation{
		doc:    d,
		method: method,
		path:   path,
		op:     &openapi3.Operation{Responses: openapi3.NewResponses()},
	}
}

func (o *Operation) Summary(summary string) *Operation {
	o.op.Summary = summary
	return o
}

func (o *Operation) Description(description string) *Operation {
	o.op.Description = description
	return o
}

func (o *Operation) OperationID(id string) *Operation {
	o.op.OperationID = id
	return o
}

func (o *Operation) Tags(tags ...string) *Operation {
	o.op.Tags = append(o.op.Tags, tags...)
	return o
}

// Body describes a required JSON request body shaped like example.
func (o *Operation) Body(example any, description string) *Operation {
	o.op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(description).
			WithRequired(true).
			WithJSONSchemaRef(SchemaOf(example)),
	}
	return o
}

// Response describes a response. A nil example documents a response
// without a body.
func (o *Operation) Response(status int, example any, description string) *Operation {
	response := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		response = response.WithJSONSchemaRef(SchemaOf(example))
	}
	o.op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: response})
	return o
}

func (o *Operation) Security(schemes ...string) *Operation {
	if o.op.Security == nil {
		o.op.Security = openapi3.NewSecurityRequirements()
	}
	for _, scheme := range schemes {
		o.op.Security.With(openapi3.NewSecurityRequirement().Authenticate(scheme))
	}
	return o
}

func (o *Operation) Build() {
	o.doc.addOperation(o.method, o.path, o.op)
}
