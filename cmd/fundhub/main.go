package main

import (
	"context"
	"log"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
