// Package openapi builds the service's OpenAPI 3 document alongside route
// registration and serves it as JSON and YAML.
package openapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

type Document struct {
	mu   sync.RWMutex
	spec *openapi3.T
}

func New(title, version string) *Document {
	return &Document{
		spec: &openapi3.T{
			OpenAPI:    "3.0.3",
			Info:       &openapi3.Info{Title: title, Version: version},
			Paths:      openapi3.NewPaths(),
			Components: &openapi3.Components{},
		},
	}
}

func (d *Document) Description(desc string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Info.Description = desc
	return d
}

func (d *Document) Server(url, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Servers = append(d.spec.Servers, &openapi3.Server{URL: url, Description: description})
	return d
}

func (d *Document) Tag(name, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Tags = append(d.spec.Tags, &openapi3.Tag{Name: name, Description: description})
	return d
}

// BearerAuth declares a JWT bearer security scheme that operations can
// reference by name.
func (d *Document) BearerAuth(name, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.spec.Components.SecuritySchemes == nil {
		d.spec.Components.SecuritySchemes = make(openapi3.SecuritySchemes)
	}
	d.spec.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
		Value: openapi3.NewJWTSecurityScheme().WithDescription(description),
	}
	return d
}

func (d *Document) Spec() *openapi3.T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec
}

func (d *Document) JSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.MarshalIndent(d.spec, "", "  ")
}

func (d *Document) YAML() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	intermediate, err := d.spec.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(intermediate)
}

// Mount serves the document at jsonPath and yamlPath.
func (d *Document) Mount(e *echo.Echo, jsonPath, yamlPath string) {
	e.GET(jsonPath, func(c echo.Context) error {
		data, err := d.JSON()
		if err != nil {
			return err
		}
		return c.JSONBlob(http.StatusOK, data)
	})
	e.GET(yamlPath, func(c echo.Context) error {
		data, err := d.YAML()
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	})
}

func (d *Document) addOperation(method, path string, op *openapi3.Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	path = openAPIPath(path)
	item := d.spec.Paths.Find(path)
	if item == nil {
		item = &openapi3.PathItem{}
		d.spec.Paths.Set(path, item)
	}
	item.SetOperation(strings.ToUpper(method), op)
}

// openAPIPath turns echo's :param segments into {param}.
func openAPIPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			parts[i] = "{" + name + "}"
		}
	}
	return strings.Join(parts, "/")
}
