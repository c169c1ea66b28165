package main

import (
	"fmt"
	"os"

	"github.com/crucial707/book-catalog/cmd/cli/books"
	"github.com/crucial707/book-catalog/cmd/cli/root"
	"github.com/crucial707/book-catalog/cmd/cli/users"
)

func main() {
	rootCmd := root.GetRoot()
	users.InitUsers(rootCmd)
	books.InitBooks(rootCmd)

	// Execute the root Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
