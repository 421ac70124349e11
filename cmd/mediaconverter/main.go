package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/artemshloyda/mediaconverter/internal/cli"
)

func main() {
	cli.Execute()
}
