package main

import "massnet.org/mass-secretstore/cmd/secretstorecli/cmd"

func main() {
	cmd.Execute()
}
