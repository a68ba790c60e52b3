package scraper

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhoicas/portal-nfse/internal/domain"
	pkgnfse "github.com/jhoicas/portal-nfse/pkg/nfse"
)

// listFiles nombres de los archivos con extensión ext en dir (sin distinguir mayúsculas).
func listFiles(dir, ext string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		out[e.Name()] = struct{}{}
	}
	return out, nil
}

// waitNewFile espera un archivo con extensión ext que no esté en baseline.
// Las descargas parciales (.crdownload, .tmp) no coinciden con ext y se ignoran.
func waitNewFile(ctx context.Context, dir, ext string, baseline map[string]struct{}, timeout, interval time.Duration) (string, error) {
	var found string
	ok, err := poll(ctx, timeout, interval, func() bool {
		now, lerr := listFiles(dir, ext)
		if lerr != nil {
			return false
		}
		for name := range now {
			if _, seen := baseline[name]; seen {
				continue
			}
			if info, serr := os.Stat(filepath.Join(dir, name)); serr == nil && info.Size() > 0 {
				found = filepath.Join(dir, name)
				return true
			}
		}
		return false
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: ningún %s nuevo en %s", domain.ErrDownloadTimeout, ext, dir)
	}
	return found, nil
}

// MoveWithBaseName mueve src a dstDir como "<base><ext>", agregando " (n)" desde 2
// si el nombre ya existe. Devuelve la ruta final.
func MoveWithBaseName(src, dstDir, base string) (string, error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}
	ext := filepath.Ext(src)
	base = pkgnfse.CleanFileName(base)
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(src), ext)
	}

	dst := filepath.Join(dstDir, base+ext)
	for n := 2; fileExists(dst); n++ {
		dst = filepath.Join(dstDir, fmt.Sprintf("%s (%d)%s", base, n, ext))
	}
	if err := os.Rename(src, dst); err != nil {
		// distinto volumen: copiar y borrar
		if cerr := copyFile(src, dst); cerr != nil {
			return "", cerr
		}
		_ = os.Remove(src)
	}
	return dst, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
