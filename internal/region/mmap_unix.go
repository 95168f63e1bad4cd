//go:build unix

package region

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmap maps the first size bytes of f read-write and shared. MAP_SHARED
// is what makes the protocol work: stores through one process's view
// are served from the same page-cache pages every other mapper reads.
func mmap(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func munmap(data []byte) error {
	return unix.Munmap(data)
}

func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}
