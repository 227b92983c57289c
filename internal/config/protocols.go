package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadProtocols reads extra protocol attributions from a YAML file shaped as
//
//	eth:
//	  "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D": UniswapV2Router02
//	sol:
//	  JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4: Jupiter
//
// An empty path yields no entries.
func LoadProtocols(path string) (map[string]map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocols file: %w", err)
	}
	var protocols map[string]map[string]string
	if err := yaml.Unmarshal(raw, &protocols); err != nil {
		return nil, fmt.Errorf("parse protocols file: %w", err)
	}
	return protocols, nil
}
