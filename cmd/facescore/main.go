// Command facescore scores the most prominent face in a photograph.
package main

import "runtime"

func init() {
	// Lock the main goroutine to the main OS thread.
	// This is required on macOS for OpenCV's highgui (window creation).
	runtime.LockOSThread()
}

func main() {
	Execute()
}
