package worker

import "os"

// ProbeStorePath checks that the coordination store's directory is
// reachable, the same cheap reachability check the original render
// farm ran against its shared jobs folder before trusting store reads
// on a possibly-dropped network mount. The daemon calls this before
// starting the worker loop to log a clear warning instead of stalling
// inside sqlite's busy-timeout retries on a dropped network mount.
func ProbeStorePath(dir string) error {
	_, err := os.ReadDir(dir)
	return err
}
