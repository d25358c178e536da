package noff_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/nachosvm/vm/kernel"
	"github.com/nachosvm/vm/noff"
)

var _ = Describe("Open with a mocked FileSystem", func() {
	It("opens the path exactly once and closes nothing on success", func() {
		ctrl := gomock.NewController(GinkgoT())
		defer ctrl.Finish()

		file := kernel.NewMockFile(ctrl)
		file.EXPECT().ReadAt(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(dst []byte, length int, offset int64) (int, error) {
				copy(dst, noff.Encode(s1Header))
				return length, nil
			})

		fs := kernel.NewMockFileSystem(ctrl)
		fs.EXPECT().Open("prog.noff").Return(file, nil).Times(1)

		exe, err := noff.Open(fs, "prog.noff")
		Expect(err).NotTo(HaveOccurred())
		Expect(exe.Header).To(Equal(s1Header))
	})

	It("never calls ReadAt when Open itself fails", func() {
		ctrl := gomock.NewController(GinkgoT())
		defer ctrl.Finish()

		fs := kernel.NewMockFileSystem(ctrl)
		fs.EXPECT().Open("missing.noff").Return(nil, assertNoSuchFile{})

		Expect(func() {
			_, _ = noff.Open(fs, "missing.noff")
		}).To(PanicWith(BeAssignableToTypeOf(&kernel.Fault{})))
	})
})

type assertNoSuchFile struct{}

func (assertNoSuchFile) Error() string { return "no such file" }
