// Command pmerge sorts a shuffled vector with a tree-structured parallel
// merge sort and reports its speed-up over a sequential merge sort.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/exascience/pmerge/cmd/pmerge/command"
)

func main() {
	root := command.NewRoot()

	// glog registers its flags on the standard flag set.
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// hack to get rid of an "ERROR: logging before flag.Parse"
	args := os.Args[:]
	os.Args = os.Args[:1]
	flag.Parse()
	os.Args = args

	if err := root.Execute(); err != nil {
		glog.Error(err)
		glog.Flush()
		fmt.Fprintf(os.Stderr, "pmerge: %v\n", err)
		os.Exit(1)
	}
	glog.Flush()
}
