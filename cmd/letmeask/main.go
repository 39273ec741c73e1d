package main

import "letmeask/internal/cli"

func main() {
	cli.Execute()
}
