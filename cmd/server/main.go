// Command server answers knowledge-base questions over HTTP.
package main

import (
	"os"

	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/danielpatrickdp/nova-mentor/go-server/cmd/server/app"
)

func main() {
	if err := app.NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
