package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// reserved on at least one supported filesystem
const illegalFilenameChars = `<>:"/\|?*`

// ErrWrap flattens a (value, error) pair to the value,
// falling back to the given default on error
func ErrWrap[T any](fallback T) func(T, error) T {
	return func(value T, err error) T {
		if err != nil {
			return fallback
		}
		return value
	}
}

func ErrSuppress(err error) {
	_ = err
}

// First returns the first non-zero value
func First[T comparable](values ...T) T {
	var zero T
	for _, value := range values {
		if value != zero {
			return value
		}
	}
	return zero
}

func LegalizeFilename(filename string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalFilenameChars, r) {
			return -1
		}
		return r
	}, filename)
}

// CacheFile returns a path for the given filename
// within the user cache directory, creating parents
func CacheFile(name string) string {
	path, err := xdg.CacheFile(filepath.Join("plsync", name))
	if err != nil {
		return filepath.Join(os.TempDir(), "plsync", name)
	}
	return path
}

// FileMoveOrCopy moves src onto dst, falling back to a
// copy-and-delete when a plain rename fails (e.g. across
// devices). The copy goes through a temporary sibling
// name, so dst never holds partial content. With
// overwrite unset, an existing dst is an error rather
// than a silent clobber.
func FileMoveOrCopy(src, dst string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("file %s already exists", dst)
		}
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	input, err := os.Open(src)
	if err != nil {
		return err
	}
	defer input.Close()

	temp := dst + ".part"
	output, err := os.Create(temp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(output, input); err != nil {
		output.Close()
		os.Remove(temp)
		return err
	}
	if err := output.Close(); err != nil {
		os.Remove(temp)
		return err
	}
	if err := os.Rename(temp, dst); err != nil {
		os.Remove(temp)
		return err
	}
	return nil
}

func Excerpt(data string, limits ...int) string {
	limit := 80
	if len(limits) > 0 {
		limit = limits[0]
	}
	flat := strings.Join(strings.Fields(data), " ")
	if len(flat) <= limit {
		return flat
	}
	return flat[:limit] + "..."
}
