package main

import "github.com/cignalottu/authcore/cmd/authd/cmd"

func main() {
	cmd.Execute()
}
