// Command poiload manages the POI index and bulk-loads POIs from JSON lines.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
