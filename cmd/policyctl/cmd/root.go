// Package cmd provides the policyctl CLI commands.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "policyctl",
	Short: "Inspect and dry-run policyguard policy documents",
	Long: `policyctl loads a policy document, compiles it through the same
Policy Compiler (C2) the enforcing middleware uses, and prints the
resulting capability bitflags or a dry-run decision for a supplied query.

It exists to demonstrate the policy, compiledpolicy, and decision packages
wired together; it is not part of the policy-enforcement core itself.

Commands:
  compile   Compile a policy file and print its capability bitflags
  check     Dry-run a single is_X_allowed query against a compiled policy
  trace     Drive one tools/call through the enforcing middleware, traced
  version   Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "policyctl config file (default: ./policyctl.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("policyctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("POLICYCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	// Config is optional: every flag policyctl needs can be passed
	// directly, so a missing policyctl.yaml is not an error.
	_ = viper.ReadInConfig()
}
