package world

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"exploration-planner/internal/monitoring"
)

// ParseGeoJSON extracts obstacle polygons from a FeatureCollection. Polygon
// and MultiPolygon geometries are kept, everything else is ignored.
func ParseGeoJSON(data []byte) ([]orb.Polygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feature collection: %w", err)
	}

	var polygons []orb.Polygon
	for _, feature := range fc.Features {
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, g)
		case orb.MultiPolygon:
			polygons = append(polygons, g...)
		}
	}
	return polygons, nil
}

// LoadDir loads every *.geojson file in dir. Unreadable or malformed files
// are logged and skipped.
func LoadDir(dir string) ([]orb.Polygon, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return nil, err
	}

	monitoring.Logf("Loading obstacles from %d GeoJSON files...\n", len(files))

	var all []orb.Polygon
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			monitoring.Logf("⚠️  Failed to read %s: %v\n", file, err)
			continue
		}
		polygons, err := ParseGeoJSON(data)
		if err != nil {
			monitoring.Logf("⚠️  Failed to parse %s: %v\n", file, err)
			continue
		}
		all = append(all, polygons...)
		monitoring.Logf("   ✅ Loaded %d polygons from %s\n", len(polygons), filepath.Base(file))
	}

	monitoring.Logf("Total obstacles loaded: %d polygons\n", len(all))
	return all, nil
}
