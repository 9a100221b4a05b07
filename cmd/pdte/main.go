// Command pdte is the Server/Client CLI driver for one PDTE query
// (spec.md section 6): role, peer address, security parameters, tree
// source and protocol/algorithm selection are all cobra flags bound
// through viper, matching github.com/getamis/alice's
// example/cggmp/main.go `cmd.PersistentFlags()` + `viper.BindPFlags`
// pattern. "server"/"client" are separate subcommands rather than a
// single --role flag, mirroring how the teacher splits dkg/reshare/signer
// into distinct cobra commands instead of one mega-command with a mode
// flag.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "pdte",
	Short: "Private decision tree evaluation (HGG / HHH) between a Server and a Client",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML run-config file path (example/config.Config); explicit flags override its fields")
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(clientCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
