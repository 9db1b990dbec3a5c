// Command alphatex translates AlphaTex notation from the command line.
package main

import "os"

func main() {
	os.Exit(Execute())
}
