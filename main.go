package main

import "github.com/fbz-tec/pgxstream/cmd"

func main() {
	cmd.Execute()
}
