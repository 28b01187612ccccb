// Package main is the entry point for envspec.
package main

func main() {
	Execute()
}
