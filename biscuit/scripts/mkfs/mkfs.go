// Command mkfs builds an initial root-directory image for a vfs.FileDisk,
// walking a host skeleton directory and replicating it into the image --
// the same job the teacher's biscuit/src/mkfs/mkfs.go did for an ext2-like
// fs/ufs image, retargeted at this rewrite's block-oriented but
// disk-format-agnostic vfs.MemFS/vfs.FileDisk pair. ext2 on-disk layout
// compatibility is an explicit non-goal here, so this tool produces an
// image only this kernel's own vfs.FileDisk can read back, not one a real
// ext2 driver could mount.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vfs"
)

// initialBlocks is not used by this tool: the image file starts empty and
// vfs.FileDisk grows it on demand, as os.File.WriteAt does for any offset
// past the current end.
const initialBlocks = 256

func usage(me string) {
	fmt.Printf("%s <output image> <skel dir>\n\nBuild a vfs.FileDisk image rooted at <skel dir>.\n", me)
	os.Exit(1)
}

func copydata(src string, fs vfs.FS, dst string) {
	srcFile, err := os.Open(src)
	if err != nil {
		panic(err)
	}
	defer srcFile.Close()

	n, ferr := fs.Create(dst)
	if ferr != 0 {
		panic(fmt.Sprintf("create %s: %v", dst, ferr))
	}
	defer fs.Close(n)

	buf := make([]byte, vfs.BSIZE)
	off := 0
	for {
		nr, readErr := srcFile.Read(buf)
		if readErr != nil && readErr != io.EOF {
			panic(readErr)
		}
		if nr > 0 {
			if _, werr := fs.Write(n, buf[:nr], off); werr != 0 {
				panic(fmt.Sprintf("write %s: %v", dst, werr))
			}
			off += nr
		}
		if readErr == io.EOF {
			break
		}
	}
}

func addfiles(fs vfs.FS, skeldir string) {
	err := filepath.WalkDir(skeldir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			fmt.Printf("failed to access %q: %v\n", path, err)
			return err
		}
		rel := strings.TrimPrefix(path, skeldir)
		if rel == "" {
			return nil
		}
		if d.IsDir() {
			if e := fs.Mkdir(rel); e != 0 {
				fmt.Printf("failed to create dir %v: %v\n", rel, e)
			}
			return nil
		}
		copydata(path, fs, rel)
		return nil
	})
	if err != nil {
		fmt.Printf("error walking %q: %v\n", skeldir, err)
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) < 3 {
		usage(os.Args[0])
	}
	image, skeldir := os.Args[1], os.Args[2]

	disk, err := vfs.OpenFileDisk(image)
	if err != nil {
		fmt.Printf("open %s: %v\n", image, err)
		os.Exit(1)
	}
	defer disk.Close()

	fs := vfs.NewMemFS(disk)
	addfiles(fs, skeldir)
}
