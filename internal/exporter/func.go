package exporter

import (
	"fmt"
	"os"
)

// mkdir creates the summary directory with its parents unless it already exists.
func mkdir(pth string) error {
	info, err := os.Stat(pth)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("summary path %s is not a directory", pth)
		}

		return nil
	}

	if !os.IsNotExist(err) {
		return fmt.Errorf("os.Stat: %w", err)
	}

	if err = os.MkdirAll(pth, 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}

	return nil
}
