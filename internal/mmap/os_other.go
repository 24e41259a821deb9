//go:build !unix

package mmap

// Heap fallback for platforms without anonymous mmap support.
func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), nil, nil
}
