// catalog.go - YAML template catalog with in-memory TTL cache

package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pagomovil/comprobante-ocr/configs"
)

// Template describes one known receipt layout
type Template struct {
	ID       string      `yaml:"id"`
	Banco    string      `yaml:"banco"`
	Priority int         `yaml:"prioridad"`
	Huella   []string    `yaml:"huella"`
	Campos   []FieldSpec `yaml:"campos"`
}

// Validate checks structural sanity of a loaded template
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template without id")
	}
	if len(t.Huella) == 0 {
		return fmt.Errorf("template %s has no fingerprint strings", t.ID)
	}
	seen := map[string]bool{}
	for _, campo := range t.Campos {
		if campo.Name == "" {
			return fmt.Errorf("template %s has a field without name", t.ID)
		}
		if seen[campo.Name] {
			return fmt.Errorf("template %s declares field %s twice", t.ID, campo.Name)
		}
		seen[campo.Name] = true
		if campo.Caja != nil && (campo.Caja.Width <= 0 || campo.Caja.Height <= 0) {
			return fmt.Errorf("template %s field %s has a degenerate box", t.ID, campo.Name)
		}
	}
	return nil
}

// CoversField reports whether the template declares the named field
func (t *Template) CoversField(name string) bool {
	for _, campo := range t.Campos {
		if campo.Name == name {
			return true
		}
	}
	return false
}

type catalogCache struct {
	templates []Template
	loadedAt  time.Time
	mu        sync.RWMutex
}

var cache catalogCache

// GetCatalog returns the template catalog, reloading from disk when the
// cached copy is older than the configured TTL.
func GetCatalog() ([]Template, error) {
	ttl := time.Duration(configs.TEMPLATE_CACHE_TTL_SEC) * time.Second

	cache.mu.RLock()
	if cache.templates != nil && time.Since(cache.loadedAt) < ttl {
		defer cache.mu.RUnlock()
		return cache.templates, nil
	}
	cache.mu.RUnlock()

	cache.mu.Lock()
	defer cache.mu.Unlock()

	// Double-check after acquiring write lock
	if cache.templates != nil && time.Since(cache.loadedAt) < ttl {
		return cache.templates, nil
	}

	templates, err := LoadCatalog(configs.TEMPLATES_DIR)
	if err != nil {
		return nil, err
	}

	cache.templates = templates
	cache.loadedAt = time.Now()
	return templates, nil
}

// InvalidateCatalog drops the cached catalog so the next read reloads
func InvalidateCatalog() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.templates = nil
}

// LoadCatalog reads every .yaml template in dir. A malformed template is
// skipped with an error only when nothing loads; catalogs degrade softly.
func LoadCatalog(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// No catalog means every field goes through generic ZOI
			return []Template{}, nil
		}
		return nil, fmt.Errorf("failed to read templates dir: %w", err)
	}

	templates := []Template{}
	var lastErr error

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			lastErr = err
			continue
		}

		var tmpl Template
		if err := yaml.Unmarshal(data, &tmpl); err != nil {
			lastErr = fmt.Errorf("%s: %w", entry.Name(), err)
			continue
		}
		if err := tmpl.Validate(); err != nil {
			lastErr = err
			continue
		}
		templates = append(templates, tmpl)
	}

	if len(templates) == 0 && lastErr != nil {
		return nil, fmt.Errorf("no usable templates in %s: %w", dir, lastErr)
	}

	// Stable order: priority first, then id, so resolution ties break
	// the same way on every run
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].Priority != templates[j].Priority {
			return templates[i].Priority > templates[j].Priority
		}
		return templates[i].ID < templates[j].ID
	})

	return templates, nil
}
