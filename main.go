package main

import "github.com/swisstax/reconcile/cmd"

func main() {
	cmd.Execute()
}
