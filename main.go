package main

import "github.com/Yates-Labs/carebridge/cmd"

func main() {
	cmd.Execute()
}
