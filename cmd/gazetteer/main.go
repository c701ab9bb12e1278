package main

import (
	"os"

	"atlas.fit/gazetteer/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
