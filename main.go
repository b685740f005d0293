/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package main

import "github.com/genopshq/guardian/cmd"

func main() {
	cmd.Execute()
}
