package ipgeo_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"spatial-index/internal/ipgeo"
)

func TestOpenMissingDatabase(t *testing.T) {
	t.Parallel()

	_, err := ipgeo.Open(filepath.Join(t.TempDir(), "GeoLite2-City.mmdb"))
	assert.Error(t, err)
}
