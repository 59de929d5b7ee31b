package main

import (
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// tomlSettings mirrors the teacher's own cmd/gtos TOML dialect: keys and
// field names are compared verbatim (no case folding or other
// normalisation), and keys with no matching field are ignored.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, field string) string { return field },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error { return nil },
}

// nodeConfig is the node-level runtime configuration: everything that
// isn't part of the chain scheme (spec §6.5 covers the engine's own
// params). Grounded on the teacher's own TOML-based node config surface
// (github.com/naoina/toml is already in its go.mod).
type nodeConfig struct {
	DataDir     string `toml:"datadir"`
	ChainScheme string `toml:"chainScheme"`
	ListenAddr  string `toml:"listenAddr"`
	LogLevel    string `toml:"logLevel"`
	ValidatorKey string `toml:"validatorKey"` // hex-encoded secp256k1 key; empty means observer mode
}

func defaultNodeConfig() nodeConfig {
	return nodeConfig{
		DataDir:     "./codechain-data",
		ChainScheme: "./chain.json",
		ListenAddr:  ":30303",
		LogLevel:    "info",
	}
}

func loadNodeConfig(path string) (nodeConfig, error) {
	cfg := defaultNodeConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nodeConfig{}, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(f).Decode(&cfg); err != nil {
		return nodeConfig{}, err
	}
	return cfg, nil
}
