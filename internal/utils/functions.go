package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// TempPath returns the staging path for outputPath inside the sibling temp
// directory, creating that directory.
func TempPath(outputPath string) (string, error) {
	tempDir := filepath.Join(filepath.Dir(outputPath), TempDirName)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("error creating temp directory: %v", err)
	}
	return filepath.Join(tempDir, filepath.Base(outputPath)+".part"), nil
}

// Clean removes every temp directory below root and returns how many it
// removed.
func Clean(root string) (int, error) {
	var tempDirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() && d.Name() == TempDirName {
			tempDirs = append(tempDirs, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, dir := range tempDirs {
		if err := os.RemoveAll(dir); err != nil {
			return 0, err
		}
	}
	return len(tempDirs), nil
}
