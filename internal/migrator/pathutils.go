package migrator

import (
	"fmt"
	"strings"
)

const fileScheme = "file://"

func normalizePath(path string) string {
	if strings.HasPrefix(path, fileScheme) {
		return path
	}
	return fmt.Sprintf("%s%s", fileScheme, path)
}

func trimScheme(path string) string {
	return strings.TrimPrefix(path, fileScheme)
}
