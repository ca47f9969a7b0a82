package main

import (
	"os"

	"ticket-hunter/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
