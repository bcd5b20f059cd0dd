/*
Copyright © 2026 The tmd Authors
*/
package main

import "github.com/tanu-md/tmd/cmd"

func main() {
	cmd.Execute()
}
