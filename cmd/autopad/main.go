// Package main is the entry point for autopad.
package main

import "os"

func main() {
	os.Exit(Execute())
}
