package procnet

import "os"

func openProcNetUnix() (*os.File, error) {
	return os.Open(procNetUnixPath)
}
