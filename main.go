package main

import "github.com/devicelab-dev/recognizer/pkg/cli"

func main() {
	cli.Execute()
}
