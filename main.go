// main.go
package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/nvelasco/karmacourt/internal/cli"
)

func main() {
	cli.Execute()
}
