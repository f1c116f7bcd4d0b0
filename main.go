package main

import "github.com/cc-switch/proxy/cmd"

func main() {
	cmd.Execute()
}
