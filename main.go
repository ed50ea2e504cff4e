package main

import "bili-archive/cmd"

func main() {
	cmd.Execute()
}
