// Package guard switches on CARGO_TEST_MODE unless the caller already set it.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CARGO_TEST_MODE") == "" {
			_ = os.Setenv("CARGO_TEST_MODE", "1")
		}
	})
}
