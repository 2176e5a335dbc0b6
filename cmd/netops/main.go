package main

import "github.com/ethpandaops/netops/cmd/netops/cmd"

func main() {
	cmd.Execute()
}
