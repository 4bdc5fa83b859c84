// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/carsier/carsier/cmd/carsier"

func main() {
	cmd.Execute()
}
