package main

import "tabnorm/cmd"

func main() {
	cmd.Execute()
}
