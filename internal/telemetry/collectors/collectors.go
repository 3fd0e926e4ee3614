package collectors

import (
	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

// Collector is a stateless normalizer: it maps a category-specific inbound
// payload to the canonical record shape for its category. Collectors do not
// persist, timestamp, or assign ids; that is the session manager's job.
// Malformed input passes through best-effort; missing fields stay absent.
type Collector interface {
	Category() string
	Normalize(payload models.JSONMap) models.JSONMap
}

// Registry holds collectors keyed by category name so new categories can be
// added without touching the session manager.
type Registry struct {
	byCategory map[string]Collector
}

// NewRegistry creates a registry with the standard collector set.
func NewRegistry() *Registry {
	r := &Registry{byCategory: make(map[string]Collector)}
	r.Register(&ScanCollector{})
	r.Register(&PerformanceCollector{})
	r.Register(&InteractionCollector{})
	r.Register(&ErrorCollector{})
	r.Register(&EnvironmentCollector{})
	return r
}

// Register adds a collector for its category, replacing any existing one.
func (r *Registry) Register(c Collector) {
	r.byCategory[c.Category()] = c
}

// Normalize runs the payload through the collector for the category.
// Unknown categories pass the payload through untouched.
func (r *Registry) Normalize(category string, payload models.JSONMap) models.JSONMap {
	c, ok := r.byCategory[category]
	if !ok {
		return payload
	}
	return c.Normalize(payload)
}

// normalize copies the payload and promotes alias keys to their canonical
// names. The original keys are kept; telemetry capture is lenient.
func normalize(payload models.JSONMap, aliases map[string]string) models.JSONMap {
	if payload == nil {
		return models.JSONMap{}
	}
	out := make(models.JSONMap, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for alias, canonical := range aliases {
		if v, ok := out[alias]; ok {
			if _, exists := out[canonical]; !exists {
				out[canonical] = v
			}
		}
	}
	return out
}

// ScanCollector normalizes barcode scan outcomes.
type ScanCollector struct{}

func (ScanCollector) Category() string { return "scan" }

func (ScanCollector) Normalize(payload models.JSONMap) models.JSONMap {
	return normalize(payload, map[string]string{
		"scan_time":   "scanTime",
		"duration_ms": "scanTime",
		"code":        "barcode",
		"attempts":    "attempt",
	})
}

// PerformanceCollector normalizes performance samples.
type PerformanceCollector struct{}

func (PerformanceCollector) Category() string { return "performance" }

func (PerformanceCollector) Normalize(payload models.JSONMap) models.JSONMap {
	return normalize(payload, map[string]string{
		"metric": "type",
		"name":   "type",
	})
}

// InteractionCollector normalizes user interaction events.
type InteractionCollector struct{}

func (InteractionCollector) Category() string { return "interaction" }

func (InteractionCollector) Normalize(payload models.JSONMap) models.JSONMap {
	return normalize(payload, map[string]string{
		"element": "target",
		"event":   "action",
	})
}

// ErrorCollector normalizes uncaught error reports.
type ErrorCollector struct{}

func (ErrorCollector) Category() string { return "error" }

func (ErrorCollector) Normalize(payload models.JSONMap) models.JSONMap {
	return normalize(payload, map[string]string{
		"msg":        "message",
		"stacktrace": "stack",
	})
}

// EnvironmentCollector normalizes ambient environment change reports.
type EnvironmentCollector struct{}

func (EnvironmentCollector) Category() string { return "environment" }

func (EnvironmentCollector) Normalize(payload models.JSONMap) models.JSONMap {
	return normalize(payload, map[string]string{
		"connection": "network",
	})
}
