package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("MART_TEST_MODE") == "" {
			_ = os.Setenv("MART_TEST_MODE", "1")
		}
	})
}
