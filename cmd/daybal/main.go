package main

import "github.com/Dan9191/daybal/cmd/daybal/cmd"

func main() {
	cmd.Execute()
}
