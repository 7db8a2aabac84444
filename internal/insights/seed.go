package insights

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed seed/insights.yaml
var seedYAML []byte

type seedFile struct {
	Insights []Record `yaml:"insights"`
}

// LoadSeed decodes the embedded demo library.
func LoadSeed() ([]Record, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed decodes a seed document.
func ParseSeed(data []byte) ([]Record, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "decode insight seed")
	}
	return f.Insights, nil
}
