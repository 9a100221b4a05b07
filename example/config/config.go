// Copyright © 2020 AMIS Technologies
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// Peer identifies the single counterparty a query dials (Client) or
// accepts from (Server): its libp2p identity is deterministically derived
// from Port alone, the same way the local host's is (see
// example/peer.MakeBasicHost), so no separate key material needs to ship
// in config.
type Peer struct {
	ID   string `yaml:"id"`
	Ip   string `yaml:"ip"`
	Port int64  `yaml:"port"`
}

// Config is one party's full run configuration, per spec.md section 6's
// CLI surface: role, peer address, security parameters, tree source, and
// the HGG/HHH and HE/GC algorithm choices. cmd/ binds each field to a
// cobra flag via viper and falls back to this file when present.
type Config struct {
	// Role is "server" or "client".
	Role string `yaml:"role"`
	// Port is this party's own libp2p listen port; the control stream
	// rides the same host under a second protocol.ID rather than a
	// literal port+1 listener.
	Port int64 `yaml:"port"`
	// Peer is the counterparty to dial (Client) or accept from (Server).
	Peer Peer `yaml:"peer"`

	// SecurityBits is the symmetric security parameter, default 128.
	SecurityBits int `yaml:"securityBits"`

	// Variant selects the protocol family: "hgg" or "hhh".
	Variant string `yaml:"variant"`
	// Algorithm selects the HGG selection mechanism: "he" (packed
	// Paillier/DGK blind-and-select) or "gc" (boolean selection block).
	// Unused when Variant is "hhh".
	Algorithm string `yaml:"algorithm"`
	// HEScheme picks the additively-homomorphic cryptosystem backing
	// Algorithm "he": "paillier" or "dgk".
	HEScheme string `yaml:"heScheme"`
	// KeyCacheDir holds the per-scheme on-disk keypair cache spec.md
	// section 7's ConfigError policy exempts from strict error handling.
	KeyCacheDir string `yaml:"keyCacheDir"`

	// TreeFile names a GraphViz decision-tree file under a UCI tree
	// directory. When empty, Depth/Dimension/NumNodes synthesize one.
	TreeFile string `yaml:"treeFile"`
	// Depth, Dimension, NumNodes set a synthetic tree's shape when
	// TreeFile is empty. Dimension is also the feature vector length in
	// every run, and a Client with NumNodes 0 derives its node count from
	// Depth.
	Depth     int `yaml:"depth"`
	Dimension int `yaml:"dimension"`
	NumNodes  int `yaml:"numNodes"`

	// Features is the Client's feature vector, one entry per dimension.
	// Ignored by the Server.
	Features []uint64 `yaml:"features"`
}

func ReadConfigFile(filePath string) (*Config, error) {
	c := &Config{}
	yamlFile, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func WriteYamlFile(yamlData interface{}, filePath string) error {
	data, err := yaml.Marshal(yamlData)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(filePath, data, 0644)
}
