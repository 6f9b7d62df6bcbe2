package main

import (
	"github.com/productsnap/crawl/internal/cli"
)

func main() {
	cli.Execute()
}
