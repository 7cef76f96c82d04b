package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the optional YAML file that overrides sync-related
// environment settings, e.g.:
//
//	node_types: [article, page]
//	stopwords: [the, a]
//	model: text-embedding-3-small
//	vector_client_plugin: milvus
//	strip_elements: [table]
//	max_length: 6000
type Settings struct {
	NodeTypes          []string `yaml:"node_types"`
	Stopwords          []string `yaml:"stopwords"`
	Model              string   `yaml:"model"`
	VectorClientPlugin string   `yaml:"vector_client_plugin"`
	StripElements      []string `yaml:"strip_elements"`
	MaxLength          int      `yaml:"max_length"`
}

// LoadSettings reads a settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings file: %w", err)
	}
	return s, nil
}

// Options returns the AppConfig overrides for every field set in the file.
func (s Settings) Options(base AppConfig) []AppConfigOption {
	var opts []AppConfigOption

	sync := base.Sync()
	changed := false
	if s.NodeTypes != nil {
		sync = sync.WithNodeTypes(s.NodeTypes)
		changed = true
	}
	if s.Stopwords != nil {
		sync = sync.WithStopwords(s.Stopwords)
		changed = true
	}
	if s.StripElements != nil {
		sync = sync.WithStripElements(s.StripElements)
		changed = true
	}
	if s.MaxLength > 0 {
		sync = sync.WithMaxLength(s.MaxLength)
		changed = true
	}
	if changed {
		opts = append(opts, WithSyncConfig(sync))
	}

	if s.Model != "" {
		opts = append(opts, WithEmbeddingModel(s.Model))
	}
	if s.VectorClientPlugin != "" {
		opts = append(opts, WithVectorPlugin(s.VectorClientPlugin))
	}
	return opts
}
