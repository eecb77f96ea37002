// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/tzup/tzup/cmd/tzup"

func main() {
	cmd.Execute()
}
