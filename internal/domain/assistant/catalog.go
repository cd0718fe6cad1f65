package assistant

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/zenda/zenda/internal/platform/llm"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type promptSpec struct {
	System          string  `yaml:"system"`
	Template        string  `yaml:"template"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"maxOutputTokens"`
}

type prompt struct {
	spec promptSpec
	tmpl *template.Template
}

// Catalog holds the compiled prompt templates by flow name.
type Catalog struct {
	prompts map[string]*prompt
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// LoadCatalog parses the embedded prompt catalogue.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(defaultPrompts)
}

// ParseCatalog parses a YAML catalogue of the form {prompts: {name: {...}}}.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Prompts map[string]promptSpec `yaml:"prompts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse prompt catalogue: %w", err)
	}

	c := &Catalog{prompts: make(map[string]*prompt, len(doc.Prompts))}
	for name, spec := range doc.Prompts {
		if strings.TrimSpace(spec.Template) == "" {
			return nil, fmt.Errorf("prompt %q has no template", name)
		}
		tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(spec.Template)
		if err != nil {
			return nil, fmt.Errorf("compile prompt %q: %w", name, err)
		}
		c.prompts[name] = &prompt{spec: spec, tmpl: tmpl}
	}
	return c, nil
}

// Render builds the JSON-mode request for name with data.
func (c *Catalog) Render(name string, data interface{}) (llm.Request, error) {
	p, ok := c.prompts[name]
	if !ok {
		return llm.Request{}, fmt.Errorf("unknown prompt %q", name)
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return llm.Request{}, fmt.Errorf("render prompt %q: %w", name, err)
	}
	return llm.Request{
		Name:            name,
		System:          strings.TrimSpace(p.spec.System),
		Prompt:          strings.TrimSpace(buf.String()),
		Temperature:     p.spec.Temperature,
		MaxOutputTokens: p.spec.MaxOutputTokens,
		JSON:            true,
	}, nil
}

// Names lists the catalogue entries.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.prompts))
	for n := range c.prompts {
		names = append(names, n)
	}
	return names
}
