package main

import (
	"github.com/Akuli/import-that/cmd"
	_ "github.com/Akuli/import-that/rewrite/braces"
	_ "github.com/Akuli/import-that/rewrite/fstrings"
	_ "github.com/Akuli/import-that/rewrite/selfparam"
	_ "github.com/Akuli/import-that/rewrite/swapcase"
)

var version = "v0.1.0"

func main() {
	cmd.Execute(version)
}
