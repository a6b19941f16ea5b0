package msgcat

import (
    "embed"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "text/template"

    yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

const defaultFile = "messages.en.yaml"

// Catalog holds user-facing text templates keyed by dotted path (notify.joined_player).
// Templates are parsed once at load; a Catalog is read-only afterwards.
type Catalog struct {
    tpls map[string]*template.Template
}

// New loads the embedded defaults, then every *.yaml/*.yml in overrideDir (if set).
// An override file may replace default keys; two override files may not define the same key.
func New(overrideDir string) (*Catalog, error) {
    raw, err := defaultFiles.ReadFile(defaultFile)
    if err != nil {
        return nil, fmt.Errorf("read embedded messages: %w", err)
    }
    flat, err := flatten(raw)
    if err != nil {
        return nil, fmt.Errorf("parse embedded messages: %w", err)
    }
    if dir := strings.TrimSpace(overrideDir); dir != "" {
        over, err := loadDir(dir)
        if err != nil {
            return nil, err
        }
        for k, v := range over {
            flat[k] = v
        }
    }

    c := &Catalog{tpls: make(map[string]*template.Template, len(flat))}
    for k, v := range flat {
        if strings.TrimSpace(v) == "" {
            continue
        }
        t, err := template.New(k).Option("missingkey=error").Parse(v)
        if err != nil {
            return nil, fmt.Errorf("template %s: %w", k, err)
        }
        c.tpls[k] = t
    }
    return c, nil
}

func loadDir(dir string) (map[string]string, error) {
    entries, err := os.ReadDir(dir)
    if err != nil {
        return nil, fmt.Errorf("read template dir: %w", err)
    }
    var files []string
    for _, e := range entries {
        if e.IsDir() { continue }
        switch strings.ToLower(filepath.Ext(e.Name())) {
        case ".yaml", ".yml":
            files = append(files, e.Name())
        }
    }
    sort.Strings(files)

    out := make(map[string]string)
    from := make(map[string]string)
    for _, name := range files {
        b, err := os.ReadFile(filepath.Join(dir, name))
        if err != nil { return nil, fmt.Errorf("read %s: %w", name, err) }
        flat, err := flatten(b)
        if err != nil { return nil, fmt.Errorf("parse %s: %w", name, err) }
        for k, v := range flat {
            if prev, dup := from[k]; dup {
                return nil, fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
            }
            from[k] = name
            out[k] = v
        }
    }
    return out, nil
}

// flatten turns nested YAML maps into dotted keys. Only string leaves are allowed.
func flatten(b []byte) (map[string]string, error) {
    var root map[string]any
    if err := yaml.Unmarshal(b, &root); err != nil {
        return nil, err
    }
    out := make(map[string]string)
    var walk func(node any, prefix string) error
    walk = func(node any, prefix string) error {
        switch v := node.(type) {
        case map[string]any:
            for k, child := range v {
                key := k
                if prefix != "" { key = prefix + "." + k }
                if err := walk(child, key); err != nil { return err }
            }
        case string:
            if prefix == "" { return fmt.Errorf("string value without key") }
            out[prefix] = v
        case nil:
        default:
            return fmt.Errorf("unsupported value at %s: %T", prefix, v)
        }
        return nil
    }
    if err := walk(root, ""); err != nil {
        return nil, err
    }
    return out, nil
}

// Has reports whether key has a template.
func (c *Catalog) Has(key string) bool {
    _, ok := c.tpls[strings.TrimSpace(key)]
    return ok
}

// Require fails with the first missing key.
func (c *Catalog) Require(keys ...string) error {
    for _, k := range keys {
        if !c.Has(k) {
            return fmt.Errorf("message template missing: %s", k)
        }
    }
    return nil
}

// Render executes the template for key. Missing keys and missing fields are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
    t, ok := c.tpls[strings.TrimSpace(key)]
    if !ok {
        return "", fmt.Errorf("template not found: %s", key)
    }
    var b strings.Builder
    if err := t.Execute(&b, data); err != nil {
        return "", err
    }
    return b.String(), nil
}
