// Command approvedeny creates and inspects check requests and signs or
// verifies webhook payloads.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
