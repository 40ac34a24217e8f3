package redis

import "strings"

const (
	keyNamespace      = "tb"
	idempotencyPrefix = "idempotency"
	lockPrefix        = "lock"
)

// Keyspace namespaces every key this service writes under "tb:".
type Keyspace struct{}

// IdempotencyKey is tb:idempotency:<scope>:<id>.
func (Keyspace) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

// LockKey is tb:lock:<name>, e.g. tb:lock:sale:<uuid>.
func (Keyspace) LockKey(name string) string {
	return joinKey(lockPrefix, name)
}

func joinKey(parts ...string) string {
	out := make([]string, 0, len(parts)+1)
	out = append(out, keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, ":")
}
