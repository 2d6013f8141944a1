// Command tileclust extracts tilesets from tile map captures and clusters
// the extracted tiles.
//
//	tileclust extract -i maps/overworld.png -o out/overworld
//	tileclust features -d out/overworld
//	tileclust cluster -d out/overworld -first adjacency,window -k1 8 -second mirror,pixel -k2 4
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&extractCmd{}, "")
	subcommands.Register(&featuresCmd{}, "")
	subcommands.Register(&clusterCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
