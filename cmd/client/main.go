package main

import (
	"os"

	"superchat/client/internal/app"
)

func main() {
	os.Exit(app.Run())
}
