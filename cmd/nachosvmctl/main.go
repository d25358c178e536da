// Command nachosvmctl inspects NOFF executables and boot-time memory
// configuration without running a full simulation.
package main

import "github.com/nachosvm/vm/cmd/nachosvmctl/cmd"

func main() {
	cmd.Execute()
}
