package identity

import (
	_ "embed"
	"strings"
	"sync"
)

//go:embed stdlib.txt
var stdlibList string

var stdlibModules = sync.OnceValue(func() map[string]struct{} {
	m := make(map[string]struct{}, 256)
	for _, line := range strings.Split(stdlibList, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			m[line] = struct{}{}
		}
	}
	return m
})

// IsStdlibModule reports whether the root of module is part of the Python 3
// standard library.
func IsStdlibModule(module string) bool {
	_, ok := stdlibModules()[rootModule(module)]
	return ok
}
