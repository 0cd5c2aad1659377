// Package msgcat holds the user-facing texts of API errors. Entries are
// text/template strings keyed by dotted path ("errors.SeatTaken").
package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var embedded embed.FS

const defaultFile = "messages.en.yaml"

// Catalog is immutable after New; templates are parsed once at load so a
// broken override fails startup instead of a request.
type Catalog struct {
	tpls map[string]*template.Template
}

// New loads the embedded English texts, then every *.yaml / *.yml file in
// overrideDir. Two override files defining the same key is an error.
func New(overrideDir string) (*Catalog, error) {
	raw, err := embedded.ReadFile(defaultFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	texts, err := flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", defaultFile, err)
	}
	if strings.TrimSpace(overrideDir) != "" {
		overrides, err := loadDir(overrideDir)
		if err != nil {
			return nil, err
		}
		for k, v := range overrides {
			texts[k] = v
		}
	}

	c := &Catalog{tpls: make(map[string]*template.Template, len(texts))}
	for key, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		t, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", key, err)
		}
		c.tpls[key] = t
	}
	return c, nil
}

func loadDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read messages dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	sort.Strings(names)

	out := make(map[string]string)
	origin := make(map[string]string)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		texts, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		for k, v := range texts {
			if prev, dup := origin[k]; dup {
				return nil, fmt.Errorf("message %q defined in both %s and %s", k, prev, name)
			}
			origin[k] = name
			out[k] = v
		}
	}
	return out, nil
}

// flatten turns nested YAML maps into dotted keys.
func flatten(raw []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	var walk func(node any, path string) error
	walk = func(node any, path string) error {
		switch v := node.(type) {
		case map[string]any:
			for k, child := range v {
				next := k
				if path != "" {
					next = path + "." + k
				}
				if err := walk(child, next); err != nil {
					return err
				}
			}
		case string:
			if path == "" {
				return errors.New("top-level string without a key")
			}
			out[path] = v
		case nil:
		default:
			return fmt.Errorf("%s: expected string or map, got %T", path, v)
		}
		return nil
	}
	if err := walk(root, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// Render executes the template stored under key. Data the template refers
// to but data lacks is an error.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, ok := c.tpls[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("message not found: %s", key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ErrorMessage renders errors.<code>, or returns fallback when there is no
// such message or it needs data that was not supplied.
func (c *Catalog) ErrorMessage(code string, data map[string]any, fallback string) string {
	if c == nil {
		return fallback
	}
	if data == nil {
		data = map[string]any{}
	}
	msg, err := c.Render("errors."+code, data)
	if err != nil {
		return fallback
	}
	return msg
}
