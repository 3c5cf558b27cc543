package main

import "github.com/DRSN-tech/visual-matcher/internal/cli"

func main() {
	cli.Execute()
}
