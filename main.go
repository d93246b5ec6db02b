package main

import (
	"dropfm/cmd"
)

func main() {
	cmd.Execute()
}
