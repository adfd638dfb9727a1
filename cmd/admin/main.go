package main

import "github.com/vietddude/syncer/internal/cli"

func main() {
	cli.Execute()
}
