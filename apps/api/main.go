package main

import (
	"flag"
)

// TODO:
// - rate limit `/v1/checkout`
// - pprof on the debug server
func main() {
	manual := flag.Bool("manual", false, "wire dependencies by hand instead of using the dig container")
	flag.Parse()

	if *manual {
		startManual()
		return
	}
	startWithDig()
}
