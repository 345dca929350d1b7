package main

import "github.com/AlexeyMuratov2/interhubdev-sub002/internal/cli"

func main() {
	cli.Execute()
}
