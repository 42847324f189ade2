package opencv

import (
	"os"
	"path/filepath"
)

// CascadeFile is the stock OpenCV frontal-face model.
const CascadeFile = "haarcascade_frontalface_default.xml"

var searchDirs = []string{
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// resolveCascade returns path when it exists, otherwise the first system
// install of CascadeFile. It falls back to path so the load error names it.
func resolveCascade(path string) string {
	if path != "" {
		if fi, err := os.Stat(path); err == nil {
			if !fi.IsDir() {
				return path
			}
			path = filepath.Join(path, CascadeFile)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, CascadeFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if path == "" {
		return CascadeFile
	}
	return path
}
