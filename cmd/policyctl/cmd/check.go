package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpkit-go/policyguard/internal/domain/compiledpolicy"
	"github.com/mcpkit-go/policyguard/internal/domain/decision"
	"github.com/mcpkit-go/policyguard/internal/domain/policy"
)

var checkFormat string
var checkOp string

var checkCmd = &cobra.Command{
	Use:   "check [policy-file] [tool|network|storage|env] [value]",
	Short: "Dry-run a single is_X_allowed query against a compiled policy",
	Long: `Check loads and compiles a policy file, then runs exactly one of the
Decision Engine's four synchronous queries against it and prints the
verdict. For "storage", --op selects the access verb (default "read").

Exit status is 0 regardless of the verdict; the allow/deny outcome is
reported on stdout, not via the process exit code, since a denial is an
expected outcome and not a CLI failure.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read policy file: %w", err)
		}
		p, err := policy.Parse(raw, policy.Format(checkFormat))
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
		eng := decision.New(cp)

		category, value := args[1], args[2]
		var verdict bool
		switch category {
		case "tool":
			verdict = eng.IsToolAllowed(value)
		case "network":
			verdict = eng.IsNetworkAllowed(value)
		case "storage":
			verdict = eng.IsStorageAllowed(value, checkOp)
		case "env":
			verdict = eng.IsEnvAllowed(value)
		default:
			return fmt.Errorf("unknown category %q: want tool, network, storage, or env", category)
		}

		result := "deny"
		if verdict {
			result = "allow"
		}
		fmt.Printf("%s(%s) -> %s\n", category, value, result)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "yaml", "policy document format (yaml|json)")
	checkCmd.Flags().StringVar(&checkOp, "op", "read", "storage access verb (read|write|execute); ignored for other categories")
	rootCmd.AddCommand(checkCmd)
}
