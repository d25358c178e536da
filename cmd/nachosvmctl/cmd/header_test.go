package cmd

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nachosvm/vm/noff"
)

var _ = Describe("runHeader", func() {
	It("parses and prints a valid NOFF file without error", func() {
		h := noff.Header{
			Magic:      noff.Magic,
			Code:       noff.Segment{Size: 10, VirtualAddr: 0, InFileAddr: 40},
			InitData:   noff.Segment{Size: 0},
			UninitData: noff.Segment{Size: 0},
		}
		path := filepath.Join(GinkgoT().TempDir(), "prog.noff")
		Expect(os.WriteFile(path, append(noff.Encode(h), make([]byte, 10)...), 0o644)).To(Succeed())

		Expect(runHeader(path)).NotTo(HaveOccurred())
	})

	It("returns an error instead of panicking when the file is missing", func() {
		Expect(runHeader(filepath.Join(GinkgoT().TempDir(), "missing.noff"))).To(HaveOccurred())
	})

	It("returns an error instead of panicking on a bad-magic file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "bad.noff")
		Expect(os.WriteFile(path, make([]byte, 40), 0o644)).To(Succeed())

		Expect(runHeader(path)).To(HaveOccurred())
	})
})
