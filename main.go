package main

import "github.com/onec-mcp/bridge/cmd"

func main() {
	cmd.Execute()
}
