package collectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrifit-ops/scan-telemetry-go/internal/database/models"
)

func TestScanCollectorPromotesAliases(t *testing.T) {
	r := NewRegistry()

	out := r.Normalize("scan", models.JSONMap{
		"code":      "4006381333931",
		"scan_time": 1200.0,
		"success":   true,
	})

	barcode, _ := out.String("barcode")
	assert.Equal(t, "4006381333931", barcode)
	scanTime, _ := out.Float("scanTime")
	assert.Equal(t, 1200.0, scanTime)

	// Original keys stay; capture is lenient, not lossy.
	_, hasOriginal := out["code"]
	assert.True(t, hasOriginal)
}

func TestNormalizeDoesNotOverwriteCanonical(t *testing.T) {
	r := NewRegistry()

	out := r.Normalize("scan", models.JSONMap{
		"scanTime":  900.0,
		"scan_time": 1200.0,
	})

	scanTime, _ := out.Float("scanTime")
	assert.Equal(t, 900.0, scanTime)
}

func TestNormalizeCopiesInput(t *testing.T) {
	r := NewRegistry()
	in := models.JSONMap{"code": "123"}

	out := r.Normalize("scan", in)
	out["extra"] = true

	_, leaked := in["extra"]
	assert.False(t, leaked)
	_, promoted := in["barcode"]
	assert.False(t, promoted)
}

func TestNormalizeNilPayload(t *testing.T) {
	r := NewRegistry()

	out := r.Normalize("error", nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestUnknownCategoryPassesThrough(t *testing.T) {
	r := NewRegistry()
	in := models.JSONMap{"anything": 1}

	out := r.Normalize("telepathy", in)
	assert.Equal(t, in, out)
}

func TestErrorCollectorAliases(t *testing.T) {
	r := NewRegistry()

	out := r.Normalize("error", models.JSONMap{
		"msg":        "boom",
		"stacktrace": "at scanner.js:12",
	})

	message, _ := out.String("message")
	assert.Equal(t, "boom", message)
	stack, _ := out.String("stack")
	assert.Equal(t, "at scanner.js:12", stack)
}

func TestRegisterReplacesCollector(t *testing.T) {
	r := NewRegistry()
	r.Register(passthroughCollector{category: "scan"})

	out := r.Normalize("scan", models.JSONMap{"code": "123"})
	_, promoted := out["barcode"]
	assert.False(t, promoted)
}

type passthroughCollector struct {
	category string
}

func (c passthroughCollector) Category() string { return c.category }

func (c passthroughCollector) Normalize(payload models.JSONMap) models.JSONMap { return payload }
