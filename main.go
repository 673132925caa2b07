package main

import "github.com/Layr-Labs/operator-state/cmd"

func main() {
	cmd.Execute()
}
