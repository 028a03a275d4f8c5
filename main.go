package main

import "github.com/ValentinKolb/mockbody/cmd"

func main() {
	cmd.Execute()
}
