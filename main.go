package main

import "github.com/tanq16/qurandl/cmd"

func main() {
	cmd.Execute()
}
