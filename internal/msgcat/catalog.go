package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages/*.yaml
var defaultFiles embed.FS

// Catalog maps dot keys ("ui.title", "hint.prompt.easy") to compiled
// text/template values. It is immutable once New returns.
type Catalog struct {
	templates map[string]*template.Template
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}

// New loads the embedded messages, layers overrideDir on top when set and
// compiles every entry. A template that does not parse fails here.
func New(overrideDir string) (*Catalog, error) {
	sources, err := embeddedSources()
	if err != nil {
		return nil, err
	}
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		overrides, err := dirSources(dir)
		if err != nil {
			return nil, err
		}
		for k, v := range overrides {
			sources[k] = v
		}
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(sources))}
	for key, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		t, err := template.New(key).Option("missingkey=error").Funcs(funcs).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", key, err)
		}
		c.templates[key] = t
	}
	return c, nil
}

func embeddedSources() (map[string]string, error) {
	names, err := fs.Glob(defaultFiles, "messages/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list embedded messages: %w", err)
	}
	sort.Strings(names)
	out := make(map[string]string)
	for _, name := range names {
		raw, err := fs.ReadFile(defaultFiles, name)
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", name, err)
		}
		if err := flattenInto(raw, out); err != nil {
			return nil, fmt.Errorf("parse embedded %s: %w", name, err)
		}
	}
	return out, nil
}

// dirSources reads every *.yaml / *.yml in dir. A key may appear in only one
// override file.
func dirSources(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read message dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				files = append(files, e.Name())
			}
		}
	}
	sort.Strings(files)

	out := make(map[string]string)
	owner := make(map[string]string)
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		flat := make(map[string]string)
		if err := flattenInto(raw, flat); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		for k, v := range flat {
			if prev, dup := owner[k]; dup {
				return nil, fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			owner[k] = name
			out[k] = v
		}
	}
	return out, nil
}

func flattenInto(raw []byte, out map[string]string) error {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return flatten(doc, "", out)
}

// flatten accepts nested maps with string leaves only.
func flatten(node any, prefix string, out map[string]string) error {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flatten(child, key, out); err != nil {
				return err
			}
		}
	case string:
		if prefix == "" {
			return errors.New("string value without key prefix")
		}
		out[prefix] = v
	case nil:
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
	return nil
}

// Has reports whether key has a non-blank template.
func (c *Catalog) Has(key string) bool {
	_, ok := c.templates[strings.TrimSpace(key)]
	return ok
}

// Render executes the template stored under key and trims the result.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, ok := c.templates[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
