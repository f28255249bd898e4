package shared

import "fmt"

// IdempotencyKey builds redis keys for processed request keys.
func IdempotencyKey(module, key string) string {
	return fmt.Sprintf("mart:idem:%s:%s", module, key)
}

// IdempotencyScope narrows a module to one caller so equal client keys of different callers never collide.
func IdempotencyScope(module string, actor Actor) string {
	return fmt.Sprintf("%s:s%d:c%d", module, actor.StaffID, actor.CustomerID)
}
