package main

import "github/itish2003/cricketbot/commands"

func main() {
	commands.Execute()
}
