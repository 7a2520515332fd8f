// Package main is the entry point for the arc-launchpad service.
package main

func main() {
	Execute()
}
