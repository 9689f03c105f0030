//go:build !linux && !darwin

package backing

import "fmt"

func mmapAnon(size int) ([]byte, error) {
	return nil, fmt.Errorf("backing: anonymous mmap not supported on this platform")
}

func munmap(b []byte) error {
	return nil
}
