package main

import (
	"embed"

	cmd "github.com/cidaily/cidaily/cmd/cidaily"
	"github.com/cidaily/cidaily/internal/assets"
)

//go:embed data/templates
var vfs embed.FS

func main() {
	assets.UpdateData(vfs)
	cmd.Execute()
}
