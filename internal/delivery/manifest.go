package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/verigreen-hackathon/verigreen/internal/ndvi"
)

// ManifestRow names the band files of one tile. Relative paths are resolved
// against the manifest's directory.
type ManifestRow struct {
	TileID    string `csv:"tile_id"`
	Red       string `csv:"red"`
	NIR       string `csv:"nir"`
	CloudMask string `csv:"cloud_mask"`
}

func (r ManifestRow) Paths() ndvi.TilePaths {
	return ndvi.TilePaths{Red: r.Red, NIR: r.NIR, CloudMask: r.CloudMask}
}

func LoadManifest(path string) ([]*ManifestRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	var rows []*ManifestRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		row.TileID = strings.TrimSpace(row.TileID)
		if row.TileID == "" {
			return nil, fmt.Errorf("manifest row %d has no tile_id", i+1)
		}
		if seen[row.TileID] {
			return nil, fmt.Errorf("manifest row %d repeats tile_id %q", i+1, row.TileID)
		}
		seen[row.TileID] = true

		row.Red = resolve(base, row.Red)
		row.NIR = resolve(base, row.NIR)
		row.CloudMask = resolve(base, row.CloudMask)
	}
	return rows, nil
}

func resolve(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
