package main

import "github.com/sechecker/sechecker/cmd/sechecker"

func main() { sechecker.Execute() }
