package main

import "github.com/ThanhXT2002/api-insurance-sub001/cmd"

func main() {
	cmd.Execute()
}
