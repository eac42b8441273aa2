// Command policyctl is a thin demo CLI wiring the policy model, compiler,
// and decision engine together end-to-end. It is not part of the core (the
// core's external interfaces are the package APIs under internal/domain),
// but it demonstrates C1–C3 the way an embedder would drive them.
package main

import "github.com/mcpkit-go/policyguard/cmd/policyctl/cmd"

func main() {
	cmd.Execute()
}
