package host

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/nf/schip/chip8"
)

// ReadROM reads a program image from name.
func ReadROM(name string) ([]byte, error) {
	rom, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	switch {
	case len(rom) == 0:
		return nil, fmt.Errorf("rom %s is empty", name)
	case len(rom) > chip8.MaxROMSize:
		return nil, fmt.Errorf("rom %s is %d bytes, larger than %d", name, len(rom), chip8.MaxROMSize)
	}
	return rom, nil
}

// LoadFlags reads the RPL flag registers from name. A missing file
// yields zeroed flags, and a short file is zero filled.
func LoadFlags(name string) (flags [16]byte, err error) {
	b, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return flags, nil
	}
	if err != nil {
		return flags, fmt.Errorf("reading flags: %v", err)
	}
	copy(flags[:], b)
	return flags, nil
}

// SaveFlags writes the RPL flag registers to name as 16 raw bytes.
func SaveFlags(name string, flags [16]byte) error {
	if err := os.WriteFile(name, flags[:], 0644); err != nil {
		return fmt.Errorf("writing flags: %v", err)
	}
	return nil
}
