//go:build !unix && !windows

package renamer

func isCrossDevice(err error) bool {
	return false
}
