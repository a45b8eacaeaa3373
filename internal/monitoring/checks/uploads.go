package checks

import (
	"context"
	"fmt"
	"os"

	"github.com/charlesng35/web3drender/internal/monitoring"
)

// UploadDir verifies the upload directory exists and accepts new files.
func UploadDir(dir string) monitoring.Check {
	return monitoring.NewCheck("uploads", func(context.Context) error {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		probe, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return fmt.Errorf("upload directory not writable: %w", err)
		}
		name := probe.Name()
		_ = probe.Close()
		return os.Remove(name)
	})
}
