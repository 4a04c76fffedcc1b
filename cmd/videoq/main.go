package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := App().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
