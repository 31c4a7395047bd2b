package util

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidSize = errors.New("invalid size")

var sizeSuffixes = []struct {
	suffix string
	factor uint64
}{
	// Longest suffixes first so "KiB" is not read as "B".
	{"kib", 1 << 10}, {"mib", 1 << 20}, {"gib", 1 << 30}, {"tib", 1 << 40},
	{"kb", 1_000}, {"mb", 1_000_000}, {"gb", 1_000_000_000}, {"tb", 1_000_000_000_000},
	{"k", 1_000}, {"m", 1_000_000}, {"g", 1_000_000_000}, {"t", 1_000_000_000_000},
	{"b", 1},
}

// ParseSize reads a byte count such as "1048576", "10MB", "1.5 GiB" or
// "512k". Decimal suffixes are powers of 1000, "i" suffixes powers of 1024.
func ParseSize(s string) (uint64, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSize)
	}

	factor := uint64(1)
	for _, sf := range sizeSuffixes {
		if strings.HasSuffix(in, sf.suffix) {
			factor = sf.factor
			in = strings.TrimSpace(strings.TrimSuffix(in, sf.suffix))
			break
		}
	}

	if n, err := strconv.ParseUint(in, 10, 64); err == nil {
		if factor != 1 && n > math.MaxUint64/factor {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
		}
		return n * factor, nil
	}

	f, err := strconv.ParseFloat(in, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	v := f * float64(factor)
	if v >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}
	return uint64(v), nil
}
