//go:build !linux

package file

import "os"

func adviseSequential(*os.File, int64, int64) {}
