package main

import "github.com/MrEthical07/goSession/cmd/gosession/cmd"

func main() {
	cmd.Execute()
}
