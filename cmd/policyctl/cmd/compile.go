package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mcpkit-go/policyguard/internal/domain/compiledpolicy"
	"github.com/mcpkit-go/policyguard/internal/domain/policy"
)

var compileFormat string

var compileCmd = &cobra.Command{
	Use:   "compile [policy-file]",
	Short: "Compile a policy document and print its capability bitflags",
	Long: `Compile loads a policy document, runs it through Parse, Validate, and
Compile exactly as an embedder would at startup, and prints the policy
version and the resulting capability bitflags. Per-category default
verdicts are not printed.

Each invocation is tagged with a random request ID (printed as the first
line of output, not otherwise meaningful) the same way a long-running embedder would correlate a policy
reload across its own logs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requestID := uuid.New()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read policy file: %w", err)
		}

		format := policy.Format(compileFormat)
		p, err := policy.Parse(raw, format)
		if err != nil {
			return err
		}
		if err := policy.Validate(p); err != nil {
			return err
		}
		cp, err := compiledpolicy.Compile(p)
		if err != nil {
			return err
		}

		fmt.Printf("request_id: %s\n", requestID)
		fmt.Printf("policy version: %s\n", p.Version)
		fmt.Println("capabilities:")
		printCap(cp, "network", compiledpolicy.CapNetwork)
		printCap(cp, "filesystem", compiledpolicy.CapFilesystem)
		printCap(cp, "environment", compiledpolicy.CapEnvironment)
		printCap(cp, "fuel_limit", compiledpolicy.CapFuelLimit)
		return nil
	},
}

func printCap(cp *compiledpolicy.Policy, name string, bit compiledpolicy.Capabilities) {
	fmt.Printf("  %-12s %v\n", name, cp.Capabilities.Has(bit))
}

func init() {
	compileCmd.Flags().StringVar(&compileFormat, "format", "yaml", "policy document format (yaml|json)")
	rootCmd.AddCommand(compileCmd)
}
