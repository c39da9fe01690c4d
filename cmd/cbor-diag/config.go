package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the flag set; a config file supplies defaults for
// flags the command line leaves unset.
type fileConfig struct {
	From    string `toml:"from"`
	To      string `toml:"to"`
	Query   string `toml:"query"`
	Seq     bool   `toml:"seq"`
	Verbose bool   `toml:"verbose"`
}

// applyConfig overlays values from a TOML file onto opts. Flags given
// explicitly on the command line win; only keys actually present in the
// file are applied, so a false in the struct zero value never clobbers
// anything.
func applyConfig(opts *options, path string, set map[string]bool) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg fileConfig
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	if meta.IsDefined("from") && !set["from"] {
		opts.From = cfg.From
	}
	if meta.IsDefined("to") && !set["to"] {
		opts.To = cfg.To
	}
	if meta.IsDefined("query") && !set["query"] {
		opts.Query = cfg.Query
	}
	if meta.IsDefined("seq") && !set["seq"] {
		opts.Seq = cfg.Seq
	}
	if meta.IsDefined("verbose") && !set["verbose"] {
		opts.Verbose = cfg.Verbose
	}
	return nil
}
