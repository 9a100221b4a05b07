package main

import (
	"context"
	"crypto/rand"
	"fmt"

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

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Run the feature-holding Client side of one PDTE query",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig(cmd, "client")
		if err != nil {
			return err
		}
		featuresFlag, _ := cmd.Flags().GetString("features")
		features, err := parseFeatures(featuresFlag)
		if err != nil {
			return err
		}
		if len(features) != cfg.Dimension {
			return fmt.Errorf("%w: got %d features, dimension is %d", ErrConfig, len(features), cfg.Dimension)
		}

		host, err := peer.MakeBasicHost(cfg.Port)
		if err != nil {
			return err
		}
		defer host.Close()

		serverAddr, err := peer.GetPeerAddr(cfg.Peer.Ip, cfg.Peer.Port)
		if err != nil {
			return err
		}

		conn, err := transport.Dial(context.Background(), host, serverAddr)
		if err != nil {
			return err
		}
		defer conn.Close()

		numDecisionNodes := cfg.NumNodes
		if numDecisionNodes == 0 {
			// A synthetic Server tree has exactly 2^depth - 1 decision
			// nodes (spec.md section 6); the Client needs this count up
			// front to size its input vector.
			numDecisionNodes = (1 << uint(cfg.Depth)) - 1
		}

		var class uint64
		switch {
		case cfg.Variant == "hhh":
			curve := pdteelliptic.NewSecp256k1()
			class, err = hhh.RunClient(conn, curve, features, comparisonBitWidth, rand.Reader)
			if err != nil {
				return err
			}
		case cfg.Algorithm == "gc":
			gggCfg := ggg.Config{NumDecisionNodes: numDecisionNodes, Dimension: cfg.Dimension}
			class, err = ggg.RunClient(conn, features, gggCfg)
			if err != nil {
				return err
			}
		default:
			he, err := buildClientHEParty(cfg)
			if err != nil {
				return err
			}
			hggCfg := hgg.Config{NumDecisionNodes: numDecisionNodes, Dimension: cfg.Dimension}
			class, err = hgg.RunClient(conn, he, features, hggCfg)
			if err != nil {
				return err
			}
		}

		logger.Logger().Info("query complete", "classification", class)
		fmt.Println(class)
		return nil
	},
}

func init() {
	addCommonFlags(clientCmd)
	clientCmd.Flags().String("features", "", "comma-separated feature vector, one entry per dimension (required)")
}

// buildClientHEParty constructs the Client's half-keypair; it mirrors
// buildHEParty but exists separately since the Client never touches a
// key-cache file under cfg.KeyCacheDir - the cache is the Server's model
// keypair, not a shared secret (spec.md section 6).
func buildClientHEParty(cfg *config.Config) (heparty.Party, error) {
	switch cfg.HEScheme {
	case "dgk":
		return dgk.NewParty(dgk.DefaultParams())
	default:
		return paillier.NewParty(2048, "")
	}
}
