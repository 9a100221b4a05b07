package main

import (
	"crypto/rand"

	"github.com/getamis/sirius/log"
	"github.com/spf13/cobra"

	"github.com/privatetree/pdte/crypto/dgk"
	pdteelliptic "github.com/privatetree/pdte/crypto/elliptic"
	"github.com/privatetree/pdte/crypto/heparty"
	"github.com/privatetree/pdte/crypto/paillier"
	"github.com/privatetree/pdte/example/config"
	"github.com/privatetree/pdte/example/peer"
	"github.com/privatetree/pdte/logger"
	"github.com/privatetree/pdte/protocol/ggg"
	"github.com/privatetree/pdte/protocol/hgg"
	"github.com/privatetree/pdte/protocol/hhh"
	"github.com/privatetree/pdte/transport"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the model-holding Server side of one PDTE query",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig(cmd, "server")
		if err != nil {
			return err
		}
		dt, err := buildServerTree(cfg)
		if err != nil {
			return err
		}

		host, err := peer.MakeBasicHost(cfg.Port)
		if err != nil {
			return err
		}
		defer host.Close()
		logger.Logger().Info("server listening", "port", cfg.Port, "variant", cfg.Variant, "numDecisionNodes", dt.NumDecisionNodes)

		conn, err := transport.Listen(host)
		if err != nil {
			return err
		}
		defer conn.Close()

		switch {
		case cfg.Variant == "hhh":
			curve := pdteelliptic.NewSecp256k1()
			if err := hhh.RunServer(conn, curve, dt, comparisonBitWidth, rand.Reader); err != nil {
				return err
			}
		case cfg.Algorithm == "gc":
			gggCfg := ggg.Config{NumDecisionNodes: dt.NumDecisionNodes, Dimension: cfg.Dimension}
			if err := ggg.RunServer(conn, dt, gggCfg); err != nil {
				return err
			}
		default:
			he, err := buildHEParty(cfg)
			if err != nil {
				return err
			}
			hggCfg := hgg.Config{NumDecisionNodes: dt.NumDecisionNodes, Dimension: cfg.Dimension}
			if err := hgg.RunServer(conn, he, dt, hggCfg); err != nil {
				return err
			}
		}

		log.Info("query complete")
		return nil
	},
}

func init() {
	addCommonFlags(serverCmd)
}

// comparisonBitWidth is HHH's per-bit gt protocol width (spec.md section
// 4.7); 64 matches the feature/threshold scale HGG's garbled comparator
// uses (spec.md section 4.1).
const comparisonBitWidth = 64

// buildHEParty constructs the Server's half-keypair for the HGG selection
// phase, per cfg.HEScheme (spec.md section 4.1/4.2).
func buildHEParty(cfg *config.Config) (heparty.Party, error) {
	switch cfg.HEScheme {
	case "dgk":
		return dgk.NewParty(dgk.DefaultParams())
	default:
		return paillier.NewParty(2048, cfg.KeyCacheDir)
	}
}
