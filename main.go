package main

import "stickybot/cmd"

func main() {
	cmd.Execute()
}
