package main

import "github.com/naka-gawa/portfolio-stats/cmd"

func main() {
	cmd.Execute()
}
