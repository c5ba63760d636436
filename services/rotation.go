// backend/services/rotation.go
package services

// NextOffset advances the circular rotation offset after taking a slice of
// the active-route list. Because batch sizes never exceed the catalog size,
// a slice never has to wrap mid-run; the modulo only wraps the offset for
// the next run. Absent catalog changes this visits every active route with
// the same long-run frequency and never starves the tail of the list.
func NextOffset(offset, taken, total int) int {
	if total <= 0 {
		return 0
	}
	return (offset + taken) % total
}
