package main

import "github.com/RyanBlaney/ppg-monitor/cmd"

func main() {
	cmd.Execute()
}
