package main

import "github.com/yzharold/RCAS/cmd/rcas-setup/cmd"

func main() {
	cmd.Execute()
}
