// The main package for the misheard-crawler executable.
package main

import (
	"github.com/JakeFAU/misheard-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
