package main

import "padbridge/cmd/padbridge/command"

func main() {
	command.Execute()
}
