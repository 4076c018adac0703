// Command docrouter classifies and routes documents from the command line and
// inspects the audit log.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
