package main

import "github.com/megalith-foundation/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
