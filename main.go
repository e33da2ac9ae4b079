package main

import "musicshare/cmd"

func main() {
	cmd.Execute()
}
