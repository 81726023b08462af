package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Inputs maps each policy input path to the xxhash of its content.
type Inputs map[string]string

// HashFile returns the hex xxhash64 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return strconv.FormatUint(d.Sum64(), 16), nil
}

// Fingerprint hashes every non-empty path.
func Fingerprint(paths ...string) (Inputs, error) {
	in := Inputs{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		h, err := HashFile(abs)
		if err != nil {
			return nil, err
		}
		in[abs] = h
	}
	return in, nil
}

// Changed lists the recorded paths whose content differs from what is on
// disk now. A missing file counts as changed.
func (in Inputs) Changed() []string {
	var out []string
	for p, want := range in {
		got, err := HashFile(p)
		if err != nil || got != want {
			out = append(out, p)
		}
	}
	return out
}

// DefaultDir is where snapshots live when no cache_dir is configured.
func DefaultDir() string {
	if d, err := os.UserCacheDir(); err == nil {
		return filepath.Join(d, "sechecker")
	}
	return ".sechecker"
}
