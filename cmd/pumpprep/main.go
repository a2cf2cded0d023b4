// Command pumpprep prepares water-point survey data for functional/non
// functional classification and benches classifiers on the result.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pumpprep:", err)
		os.Exit(1)
	}
}
