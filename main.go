// SPDX-License-Identifier: MPL-2.0

// Command ucw loads chisel-variation rules and registers the blocks they
// generate.
package main

import cmd "github.com/chiselworks/ucw/cmd/ucw"

func main() {
	cmd.Execute()
}
