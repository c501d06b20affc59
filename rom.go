package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// romParts are the arcade set's ROM chips in address order, 2K each.
var romParts = []string{"invaders.h", "invaders.g", "invaders.f", "invaders.e"}

const romPartSize = 0x800

// loadROM reads a program image from a file, or from a directory holding
// the split arcade ROM set.
func loadROM(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return os.ReadFile(path)
	}
	rom := make([]byte, 0, len(romParts)*romPartSize)
	for _, part := range romParts {
		b, err := os.ReadFile(filepath.Join(path, part))
		if err != nil {
			return nil, errors.Wrap(err, "loading ROM set")
		}
		if len(b) != romPartSize {
			return nil, errors.Errorf("%s: got %d bytes, want %d", part, len(b), romPartSize)
		}
		rom = append(rom, b...)
	}
	return rom, nil
}
