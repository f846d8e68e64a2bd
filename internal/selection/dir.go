package selection

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pasta/tmpc/pkg/utils"
)

// Dir stores one file per selection: the file name is the id and the body is
// the path. The directory holds a single live generation at a time, so
// dropping a generation empties it.
type Dir struct {
	root string
	log  Logger
}

// NewDir creates root if needed.
func NewDir(root string, log Logger) (*Dir, error) {
	if err := utils.MakeDir(root); err != nil {
		return nil, fmt.Errorf("creating selection dir: %w", err)
	}
	return &Dir{root: root, log: log}, nil
}

func (d *Dir) Root() string { return d.root }

func (d *Dir) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid selection id %q", id)
	}
	return filepath.Join(d.root, id), nil
}

func (d *Dir) Put(_, id, path string) error {
	p, err := d.path(id)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(path), 0o644); err != nil {
		return fmt.Errorf("writing selection: %w", err)
	}
	if err := utils.MoveFile(tmp, p); err != nil {
		if derr := utils.DeleteFile(tmp); derr != nil {
			d.log.Warnf("removing %s: %v", tmp, derr)
		}
		return err
	}
	return nil
}

func (d *Dir) Get(id string) (string, error) {
	p, err := d.path(id)
	if err != nil {
		return "", ErrNotFound
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading selection: %w", err)
	}
	return string(b), nil
}

func (d *Dir) DropGeneration(id string) error {
	if err := utils.ClearDir(d.root); err != nil {
		return fmt.Errorf("clearing selections: %w", err)
	}
	d.log.Debugf("cleared %s after %s was picked", d.root, id)
	return nil
}

func (d *Dir) Close() error { return nil }
