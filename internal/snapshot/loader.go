package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"traffic-director/internal/common/errors"
	"traffic-director/internal/rules"
)

// File is the YAML document shape of a configuration snapshot.
type File struct {
	Version  string                   `yaml:"version,omitempty"`
	Rules    []*rules.RouteRule       `yaml:"rules"`
	Clusters []*rules.UpstreamCluster `yaml:"clusters,omitempty"`
}

// LoadFile parses and validates a snapshot config file. The returned
// snapshot is fully compiled and immutable; any validation failure
// rejects the whole file.
func LoadFile(path string) (*rules.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("reading snapshot file %s", path)).WithCause(err)
	}
	return Load(data, "")
}

// Load builds a snapshot from raw YAML. When version is empty a digest
// of the content is used, so identical configs map to identical
// versions.
func Load(data []byte, version string) (*rules.Snapshot, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.ConfigError("parsing snapshot yaml").WithCause(err)
	}
	if len(file.Rules) == 0 {
		return nil, errors.ConfigError("snapshot defines no rules")
	}

	if version == "" {
		version = file.Version
	}
	if version == "" {
		sum := sha256.Sum256(data)
		version = hex.EncodeToString(sum[:6])
	}

	snap, err := rules.NewSnapshot(version, file.Rules, file.Clusters)
	if err != nil {
		return nil, errors.ConfigError("invalid snapshot").WithCause(err)
	}
	return snap, nil
}
