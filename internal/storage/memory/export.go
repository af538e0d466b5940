// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/trailmark/routecapture/pkg/core"
)

const (
	jsonExt   = ".json"
	gzipExt   = ".json.gz"
	namePrefix = "route_"
)

// exportJSON writes the route to <OutputDir>/route_<timestamp>_<id>.json[.gz]
func (b *Backend) exportJSON(route core.StoredRoute) (string, error) {
	timestamp := route.CreatedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s%s_%s%s", namePrefix, timestamp, route.ID, gzipExt)
	} else {
		filename = fmt.Sprintf("%s%s_%s%s", namePrefix, timestamp, route.ID, jsonExt)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, route); err != nil {
			return "", err
		}
	} else {
		if err := writeJSON(outputPath, route); err != nil {
			return "", err
		}
	}
	return outputPath, nil
}

func writeJSON(path string, data core.StoredRoute) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data core.StoredRoute) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

// ReadRouteFile decodes a route written by this backend, compressed or not.
func ReadRouteFile(path string) (core.StoredRoute, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.StoredRoute{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, gzipExt) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return core.StoredRoute{}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var route core.StoredRoute
	if err := json.NewDecoder(r).Decode(&route); err != nil {
		return core.StoredRoute{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return route, nil
}

func loadDir(dir string) ([]core.StoredRoute, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var routes []core.StoredRoute
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, namePrefix) {
			continue
		}
		if !strings.HasSuffix(name, jsonExt) && !strings.HasSuffix(name, gzipExt) {
			continue
		}
		route, err := ReadRouteFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, nil
}
