package main

import "github.com/ValentinKolb/dPhil/cmd"

func main() {
	cmd.Execute()
}
