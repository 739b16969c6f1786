package main

import "github.com/cppla/miniblog/cli"

func main() {
	cli.Execute()
}
