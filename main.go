package main

import (
	"github.com/thespacedoctor/soxs-pipeline/cmd"
)

func main() {
	cmd.Execute()
}
