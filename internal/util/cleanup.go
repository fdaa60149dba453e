package util

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// SetupInterruptHandler cancels the run on the first SIGINT/SIGTERM so the
// current item can finish its flush, and exits on the second one. Stale temp
// files under dirs are removed either way.
func SetupInterruptHandler(cancel context.CancelFunc, dirs ...string) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		fmt.Println("\nInterrupt received. Finishing the current item, press Ctrl+C again to abort.")
		cancel()

		<-sig
		for _, d := range dirs {
			CleanupTempFiles(d)
		}
		fmt.Println("\nAborted. Completed items are saved; rerun the same command to resume.")

		os.Exit(130)
	}()
}

// CleanupTempFiles removes leftover atomic-write temp files below dir.
func CleanupTempFiles(dir string) int {
	removed := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), TempPrefix) {
			if err := os.Remove(path); err != nil {
				fmt.Printf("Error cleaning up %s: %v\n", path, err)
			} else {
				removed++
			}
		}
		return nil
	})
	return removed
}
