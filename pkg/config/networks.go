package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NetworkCatalogue models the structure of a networks YAML file
type NetworkCatalogue struct {
	Networks map[string]NetworkDefinition `yaml:"networks"`
}

// NetworkDefinition describes a single network endpoint
type NetworkDefinition struct {
	RPCURL      string `yaml:"rpc_url"`
	ChainID     string `yaml:"chain_id"`
	Description string `yaml:"description"`
}

// LoadNetworks parses the YAML network catalogue. An empty path yields an empty catalogue.
func LoadNetworks(path string) (NetworkCatalogue, error) {
	if strings.TrimSpace(path) == "" {
		return NetworkCatalogue{Networks: map[string]NetworkDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return NetworkCatalogue{}, fmt.Errorf("failed to read network catalogue: %w", err)
	}

	var catalogue NetworkCatalogue
	if err := yaml.Unmarshal(content, &catalogue); err != nil {
		return NetworkCatalogue{}, fmt.Errorf("failed to parse network catalogue: %w", err)
	}

	networks := make(map[string]NetworkDefinition, len(catalogue.Networks))
	for name, def := range catalogue.Networks {
		networks[strings.ToLower(name)] = def
	}
	catalogue.Networks = networks
	return catalogue, nil
}

// Lookup returns the named network. Catalogue entries override built-in networks.
func (c NetworkCatalogue) Lookup(name string) (NetworkConfig, bool) {
	def, ok := c.Networks[strings.ToLower(name)]
	if !ok {
		return NetworkConfig{}, false
	}

	network := NetworkConfig{Name: name, RPCURL: def.RPCURL, ChainID: def.ChainID}
	if builtin, ok := builtinNetworks[name]; ok {
		if network.RPCURL == "" {
			network.RPCURL = builtin.RPCURL
		}
		if network.ChainID == "" {
			network.ChainID = builtin.ChainID
		}
	}
	return network, true
}
