package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/privatetree/pdte/example/config"
)

// ErrConfig reports a malformed or unsupported CLI/config combination
// (spec.md section 7's ConfigError kind); main exits non-zero on it.
var ErrConfig = errors.New("pdte: configuration error")

// addCommonFlags registers the run-config fields spec.md section 6 lists
// as shared between Server and Client: peer address, security parameters,
// tree source, and the HGG/HHH and HE/GC algorithm choices.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("port", 7766, "this party's libp2p listen port (control stream rides the same host, spec.md section 4.8)")
	cmd.Flags().String("peer-ip", "127.0.0.1", "counterparty's IP address")
	cmd.Flags().Int64("peer-port", 7766, "counterparty's listen port")
	cmd.Flags().Int("security-bits", 128, "symmetric security parameter")
	cmd.Flags().String("variant", "hgg", "protocol variant: hgg or hhh")
	cmd.Flags().String("algorithm", "he", "HGG selection mechanism: he (packed HE blind-and-select) or gc (boolean selection network)")
	cmd.Flags().String("he-scheme", "paillier", "HGG HE cryptosystem: paillier or dgk")
	cmd.Flags().String("key-cache-dir", "", "directory for the optional paillier_key_<bits>.bin keypair cache (spec.md section 6)")
	cmd.Flags().String("tree-file", "", "GraphViz-style decision-tree export (spec.md section 6); empty synthesizes one from depth/dimension")
	cmd.Flags().Int("depth", 4, "synthetic tree depth when tree-file is empty; the client also derives its node count (2^depth-1) from it when num-nodes is 0")
	cmd.Flags().Int("dimension", 4, "feature vector length; also shapes the synthetic tree when tree-file is empty")
	cmd.Flags().Int("num-nodes", 0, "expected decision-node count; 0 skips the server's cross-check and makes the client derive it from depth")
}

// loadRunConfig merges an optional --config YAML file with any explicitly
// set flags on cmd, flags taking precedence field-by-field. role is fixed
// by which subcommand (server/client) is running, not a flag.
func loadRunConfig(cmd *cobra.Command, role string) (*config.Config, error) {
	cfg := &config.Config{}
	if path := viper.GetString("config"); path != "" {
		loaded, err := config.ReadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Role = role

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("port", func() { cfg.Port, _ = cmd.Flags().GetInt64("port") })
	set("peer-ip", func() { cfg.Peer.Ip, _ = cmd.Flags().GetString("peer-ip") })
	set("peer-port", func() { cfg.Peer.Port, _ = cmd.Flags().GetInt64("peer-port") })
	set("security-bits", func() { cfg.SecurityBits, _ = cmd.Flags().GetInt("security-bits") })
	set("variant", func() { cfg.Variant, _ = cmd.Flags().GetString("variant") })
	set("algorithm", func() { cfg.Algorithm, _ = cmd.Flags().GetString("algorithm") })
	set("he-scheme", func() { cfg.HEScheme, _ = cmd.Flags().GetString("he-scheme") })
	set("key-cache-dir", func() { cfg.KeyCacheDir, _ = cmd.Flags().GetString("key-cache-dir") })
	set("tree-file", func() { cfg.TreeFile, _ = cmd.Flags().GetString("tree-file") })
	set("depth", func() { cfg.Depth, _ = cmd.Flags().GetInt("depth") })
	set("dimension", func() { cfg.Dimension, _ = cmd.Flags().GetInt("dimension") })
	set("num-nodes", func() { cfg.NumNodes, _ = cmd.Flags().GetInt("num-nodes") })

	if cfg.SecurityBits == 0 {
		cfg.SecurityBits = 128
	}
	if cfg.Variant == "" {
		cfg.Variant = "hgg"
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "he"
	}
	if cfg.HEScheme == "" {
		cfg.HEScheme = "paillier"
	}
	if cfg.Depth == 0 {
		cfg.Depth = 4
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 4
	}

	switch cfg.Variant {
	case "hgg", "hhh":
	default:
		return nil, fmt.Errorf("%w: unknown variant %q (want hgg or hhh)", ErrConfig, cfg.Variant)
	}
	if cfg.Variant == "hgg" {
		switch cfg.Algorithm {
		case "he", "gc":
		default:
			return nil, fmt.Errorf("%w: unknown algorithm %q (want he or gc)", ErrConfig, cfg.Algorithm)
		}
		if cfg.Algorithm == "he" {
			switch cfg.HEScheme {
			case "paillier", "dgk":
			default:
				return nil, fmt.Errorf("%w: unknown he-scheme %q (want paillier or dgk)", ErrConfig, cfg.HEScheme)
			}
		}
	}
	return cfg, nil
}

// parseFeatures parses a comma-separated list of unsigned 64-bit feature
// values (spec.md section 6's Client feature vector).
func parseFeatures(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid feature value %q: %v", ErrConfig, p, err)
		}
		out[i] = v
	}
	return out, nil
}
