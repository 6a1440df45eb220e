package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that set the defaults of the run command.
const (
	envRAMSize      = "PAGINGSIM_RAM_SIZE"
	envSwapSizes    = "PAGINGSIM_SWAP_SIZES"
	envLog2PageSize = "PAGINGSIM_LOG2_PAGE_SIZE"
	envBusWidth     = "PAGINGSIM_BUS_WIDTH"
	envSymtblSize   = "PAGINGSIM_SYMTBL_SIZE"
)

// config is the machine a run simulates.
type config struct {
	RAMSize         uint64
	SwapSizes       []uint64
	Log2PageSize    uint64
	BusWidth        uint64
	SymbolTableSize int
}

func defaultConfig() config {
	return config{
		RAMSize:         0x100000,
		SwapSizes:       []uint64{0x1000000},
		Log2PageSize:    8,
		BusWidth:        22,
		SymbolTableSize: 30,
	}
}

// loadConfig reads the defaults from envFile, if it exists, and from the
// environment. Variables already set in the environment win over the file.
func loadConfig(envFile string) (config, error) {
	cfg := defaultConfig()

	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var err error

	if v, ok := os.LookupEnv(envRAMSize); ok {
		if cfg.RAMSize, err = parseSize(v); err != nil {
			return cfg, fmt.Errorf("%s: %w", envRAMSize, err)
		}
	}

	if v, ok := os.LookupEnv(envSwapSizes); ok {
		if cfg.SwapSizes, err = parseSizes(v); err != nil {
			return cfg, fmt.Errorf("%s: %w", envSwapSizes, err)
		}
	}

	if v, ok := os.LookupEnv(envLog2PageSize); ok {
		if cfg.Log2PageSize, err = strconv.ParseUint(v, 0, 64); err != nil {
			return cfg, fmt.Errorf("%s: %w", envLog2PageSize, err)
		}
	}

	if v, ok := os.LookupEnv(envBusWidth); ok {
		if cfg.BusWidth, err = strconv.ParseUint(v, 0, 64); err != nil {
			return cfg, fmt.Errorf("%s: %w", envBusWidth, err)
		}
	}

	if v, ok := os.LookupEnv(envSymtblSize); ok {
		if cfg.SymbolTableSize, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("%s: %w", envSymtblSize, err)
		}
	}

	return cfg, nil
}

// parseSize accepts decimal or 0x-prefixed byte counts.
func parseSize(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 0, 64)
}

// parseSizes accepts a comma-separated list of sizes.
func parseSizes(s string) ([]uint64, error) {
	var sizes []uint64

	for _, field := range strings.Split(s, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}

		size, err := parseSize(field)
		if err != nil {
			return nil, err
		}

		sizes = append(sizes, size)
	}

	return sizes, nil
}
