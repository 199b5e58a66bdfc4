// Package loader specifies the DomainLoader contract the Upgrade
// Coordinator depends on: ELF parsing, symbol resolution, and frame
// allocation are explicitly out of scope. What remains in scope is the
// *shape* of the contract — given a file name, produce a loaded image
// record or a clean "not loadable" signal, which the coordinator turns
// uniformly into a placeholder implementation rather than a hard failure.
//
// FileLoader is a minimal reference implementation: it mmaps the candidate
// file to confirm it is present and non-empty, standing in for a real
// loader's ELF mapping step without performing any ELF-specific parsing.
package loader

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/numpy1314/domain-runtime/core/errs"
)

// Record is the domain-file-info the registry carries alongside each
// domain's id, proxy handle, type tag, and panic count.
type Record struct {
	FileName string
	Size     int64
}

// Loader is the abstract DomainLoader contract.
type Loader interface {
	// Load resolves file into a Record, or returns an error wrapping
	// errs.ErrLoadFailure if file cannot be loaded. It never returns a
	// parsed implementation — that remains entirely out of scope; callers
	// combine a successful Record with a domain-kind-specific constructor.
	Load(file string) (Record, error)
}

// FileLoader is the reference Loader: it confirms file exists, is
// readable, and is non-empty by mmapping it.
type FileLoader struct{}

// Load implements Loader.
func (FileLoader) Load(file string) (Record, error) {
	f, err := os.Open(file)
	if err != nil {
		return Record{}, fmt.Errorf("loader: open %q: %w: %v", file, errs.ErrLoadFailure, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Record{}, fmt.Errorf("loader: stat %q: %w: %v", file, errs.ErrLoadFailure, err)
	}
	if info.Size() == 0 {
		return Record{}, fmt.Errorf("loader: %q: %w: empty image", file, errs.ErrLoadFailure)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return Record{}, fmt.Errorf("loader: mmap %q: %w: %v", file, errs.ErrLoadFailure, err)
	}
	defer m.Unmap()

	return Record{FileName: file, Size: info.Size()}, nil
}
