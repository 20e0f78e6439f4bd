package main

import "github.com/deploymenttheory/go-smrsim/cmd"

func main() {
	cmd.Execute()
}
