package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nachosvm/vm/kernel"
	"github.com/nachosvm/vm/noff"
)

var headerCmd = &cobra.Command{
	Use:   "header [path]",
	Short: "Dump a NOFF executable's header.",
	Long:  "`header [path]` parses a NOFF file's header, applying the endian fixup if needed, and prints it.",
	Run: func(_ *cobra.Command, args []string) {
		if len(args) < 1 {
			fmt.Fprintln(os.Stderr, "Error: executable path argument is required")
			os.Exit(1)
		}

		if err := runHeader(args[0]); err != nil {
			log.Fatalf("nachosvmctl header: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(headerCmd)
}

func runHeader(path string) (err error) {
	defer kernel.Recover(&err)

	exe, err := noff.Open(osFileSystem{}, path)
	if err != nil {
		return err
	}
	defer exe.Close()

	h := exe.Header
	fmt.Printf("magic:       0x%x\n", h.Magic)
	fmt.Printf("code:        size=%d vaddr=%d fileAddr=%d\n", h.Code.Size, h.Code.VirtualAddr, h.Code.InFileAddr)
	fmt.Printf("initData:    size=%d vaddr=%d fileAddr=%d\n", h.InitData.Size, h.InitData.VirtualAddr, h.InitData.InFileAddr)
	fmt.Printf("uninitData:  size=%d vaddr=%d fileAddr=%d\n", h.UninitData.Size, h.UninitData.VirtualAddr, h.UninitData.InFileAddr)
	fmt.Printf("totalSize:   %d\n", h.TotalSize())

	return nil
}

// osFileSystem implements kernel.FileSystem over the real filesystem, the
// CLI's only production implementation of that contract (the other
// packages' tests use kernel.FakeFileSystem or kernel.MockFileSystem
// instead).
type osFileSystem struct{}

func (osFileSystem) Open(path string) (kernel.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return osFile{f}, nil
}

type osFile struct{ f *os.File }

func (o osFile) ReadAt(dst []byte, length int, offset int64) (int, error) {
	if length < len(dst) {
		dst = dst[:length]
	}
	return o.f.ReadAt(dst, offset)
}

func (o osFile) Close() error { return o.f.Close() }
