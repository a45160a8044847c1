package main

import (
	"dains/cmd/cmd"
)

func main() {
	cmd.Execute()
}
