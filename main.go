package main

import "github.com/kozaktomas/veriface/cmd"

func main() {
	cmd.Execute()
}
