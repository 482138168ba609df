package main

import "github.com/deploymenttheory/go-linearcache/cmd"

func main() {
	cmd.Execute()
}
