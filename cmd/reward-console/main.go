package main

import "reward-core/cmd/reward-console/cmd"

func main() {
	cmd.Execute()
}
