package main

import (
	"github.com/varekai/pagepilot/cmd"
)

func main() {
	cmd.Execute()
}
