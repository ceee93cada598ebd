//go:build !linux

package profile

func isTmpfs(string) bool {
	return false
}
