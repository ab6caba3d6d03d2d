package main

import "github.com/rowanfield/ccledger/cmd"

func main() {
	cmd.Execute()
}
