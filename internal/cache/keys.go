package cache

import "fmt"

const keyNamespace = "hookqueue"

// RateLimitKey is the counter key for one API key's requests in one scope.
func RateLimitKey(scope, keyPrefix string) string {
	return fmt.Sprintf("%s:ratelimit:%s:%s", keyNamespace, scope, keyPrefix)
}
