package main

import "dareme-cli/cmd"

func main() {
	cmd.Execute()
}
