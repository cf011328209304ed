// Package repository persists the clinic registry: patients and the
// doctors who treat them. Every table here is tenant-scoped.
package repository

import "strconv"

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
