// Package seed loads the sample documents used to populate a fresh dashboard.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// Fixtures maps a collection name to the documents seeded into it.
type Fixtures map[string][]map[string]any

func Load() (Fixtures, error) {
	return Parse(fixturesYAML)
}

func Parse(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

type Seeder interface {
	SeedIfEmpty(ctx context.Context, collection string, batch []map[string]any) (int, error)
}

// Apply seeds every collection in a stable order and returns how many
// documents were written per collection. Collections that already hold data
// are left alone.
func Apply(ctx context.Context, s Seeder, f Fixtures, logger *zap.Logger) (map[string]int, error) {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)

	written := make(map[string]int, len(names))
	for _, name := range names {
		n, err := s.SeedIfEmpty(ctx, name, f[name])
		if err != nil {
			return written, fmt.Errorf("seed %s: %w", name, err)
		}
		written[name] = n
		logger.Info("seeded collection", zap.String("collection", name), zap.Int("documents", n))
	}
	return written, nil
}
