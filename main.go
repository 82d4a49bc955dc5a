package main

import "github.com/vigia-data/registry-harvester/cmd"

func main() {
	cmd.Execute()
}
