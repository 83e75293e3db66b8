// The main package for the catalogcheck executable.
package main

import (
	"github.com/retailtools/catalogcheck/cmd"
)

func main() {
	cmd.Execute()
}
