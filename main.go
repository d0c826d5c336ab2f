package main

import (
	"os"

	"github.com/0x192/universal-android-debloater-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
