package main

import "github.com/theirongolddev/rentroll/cmd"

func main() {
	cmd.Execute()
}
