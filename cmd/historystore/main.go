// Command historystore is the CLI surface of spec §6: create, commit,
// checkout, rollback, and log an archive backed by a Badger directory (or an
// in-memory store when none is configured). There is no list subcommand; log
// prints the snapshot descriptors. Errors are printed to stderr with
// fmt.Fprintln followed by os.Exit rather than a structured logger, matching
// the teacher's cmd/service/main.go.
package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "historystore:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to the process exit code spec §6 assigns:
// 2 for a usage error, 1 for anything else.
func exitCodeFor(err error) int {
	if isUsageError(err) {
		return 2
	}
	return 1
}
