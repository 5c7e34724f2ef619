package main

import "github.com/mcoot/chessladder/internal/cli"

func main() {
	cli.Execute()
}
