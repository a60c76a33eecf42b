package main

import "github.com/nextlevelbuilder/waindex/cmd"

func main() {
	cmd.Execute()
}
