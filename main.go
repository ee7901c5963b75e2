package main

import "github.com/theirongolddev/spendburn/cmd"

func main() {
	cmd.Execute()
}
