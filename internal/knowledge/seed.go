package knowledge

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

type seedFile struct {
	Documents []model.Document `yaml:"documents"`
}

// LoadSeed reads documents from a YAML file.
func LoadSeed(path string) ([]model.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f.Documents, nil
}

// Seed indexes the documents of a YAML seed file.
func (s *Store) Seed(ctx context.Context, path string) (int, error) {
	docs, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}
	if err := s.Upsert(ctx, docs...); err != nil {
		return 0, fmt.Errorf("index seed documents: %w", err)
	}
	logx.Info().Str("path", path).Int("documents", len(docs)).Msg("knowledge base seeded")
	return len(docs), nil
}
