package main

import "github.com/lexcodex/reliquary/app/cmd"

func main() {
	cmd.Execute()
}
