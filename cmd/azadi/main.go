// Command azadi is the command-line front end for the literate-programming
// chunk extractor implemented in internal/clip, internal/chunkstore and
// internal/writer.
package main

import (
	"github.com/azadi-go/azadi/cmd"
)

func main() {
	cmd.Execute()
}
