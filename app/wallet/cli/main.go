package main

import "github.com/ardanlabs/ballot/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
