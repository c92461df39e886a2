package fs

import (
	"fmt"
	"os"
)

// WriteAtomic streams output to a sibling temporary file and renames it onto
// path after a successful flush. On any failure the temporary is removed and
// the target is left untouched.
func WriteAtomic(fsys FileSystem, path string, write func(File) error) error {
	tmp := fmt.Sprintf("%s.tmp%d", path, os.Getpid())
	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	fail := func(err error) error {
		f.Close()
		fsys.Remove(tmp)
		return err
	}

	if err := write(f); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		fsys.Remove(tmp)
		return err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		fsys.Remove(tmp)
		return err
	}
	return nil
}
