package s3config

import (
	"os"

	"crate/internal/s3errors"

	"gopkg.in/yaml.v3"
)

// Profile holds the non-secret client defaults a YAML profile file can
// supply: endpoint and region. Any zero-value field is left for the
// caller to fill in. Addressing style is deliberately absent here: it is
// always derived from the endpoint host, never a configurable default.
type Profile struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
}

// LoadProfile parses a YAML client profile file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, s3errors.Wrap(s3errors.KindInvalidArgument, err, "reading profile file %q", path)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, s3errors.Wrap(s3errors.KindInvalidArgument, err, "parsing profile file %q", path)
	}
	return p, nil
}

// Merge overlays override's non-zero fields onto p, giving explicit
// ClientConfig values precedence over anything loaded from disk.
func (p Profile) Merge(override Profile) Profile {
	merged := p
	if override.Endpoint != "" {
		merged.Endpoint = override.Endpoint
	}
	if override.Region != "" {
		merged.Region = override.Region
	}
	return merged
}
