package main

import "Bside/cmd"

func main() {
	cmd.Execute()
}
