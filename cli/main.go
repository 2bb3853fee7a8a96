// Package main provides the lifeline command line client.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
