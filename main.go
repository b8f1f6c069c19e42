package main

import "github.com/GauravPandit27/AI-Data-Analyst/cmd"

func main() {
	cmd.Execute()
}
