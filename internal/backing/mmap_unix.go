//go:build linux || darwin

package backing

import "golang.org/x/sys/unix"

// mmapAnon allocates a page-aligned anonymous mapping of size bytes, used by
// Anonymous to stand in for the caller-supplied base address and size the
// allocator core expects to receive; region backing acquisition is out of
// the core's scope and lives in this demo/test harness layer instead.
func mmapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}
