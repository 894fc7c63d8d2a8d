package main

import "github.com/personalweb03/services/cmd"

func main() {
	cmd.Execute()
}
