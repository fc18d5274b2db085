// camrng - print random numbers seeded from a camera frame
package main

import (
	"os"

	"github.com/teslashibe/go-camrng/pkg/camera/opencv"
	"github.com/teslashibe/go-camrng/pkg/camrng"
)

func main() {
	os.Exit(camrng.Main(os.Args[1:], os.Stdout, os.Stderr, opencv.NewOpener()))
}
