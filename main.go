package main

import "github.com/plsync/plsync/cmd"

func main() {
	cmd.Execute()
}
