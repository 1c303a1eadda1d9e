// Command screen runs growth checks and guided screenings from a terminal.
// Screenings are stored in a local SQLite file so a health worker can run and
// resume them without a network connection.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
