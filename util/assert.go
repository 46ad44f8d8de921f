package util

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Can be set by tests if they want to catch asserts
var AssertsPanic bool = false

func fail(msg string) {
	if AssertsPanic {
		panic(msg)
	}
	debug.PrintStack()
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// Assert is for invariants whose violation is a programming error, never for
// bad input data.
func Assert(cond bool, o ...interface{}) {
	if !cond {
		fail(fmt.Sprint(o...))
	}
}

func Assertf(cond bool, fmtstr string, o ...interface{}) {
	if !cond {
		fail(fmt.Sprintf(fmtstr, o...))
	}
}
