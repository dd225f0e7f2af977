// Command voiceorder runs the voice ordering assistant.
//
// Usage:
//
//	voiceorder serve             - UI server, session manager and gRPC health
//	voiceorder devices           - list audio devices and how capture treats them
//	voiceorder ask <tool> [json] - run one tool call against a catalog file
//	voiceorder health            - probe a running server
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
