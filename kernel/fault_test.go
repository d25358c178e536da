package kernel_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nachosvm/vm/kernel"
)

var _ = Describe("Fault", func() {
	It("renders a kind-only message when Msg is empty", func() {
		f := &kernel.Fault{Kind: kernel.BadMagic}
		Expect(f.Error()).To(Equal("BadMagic"))
	})

	It("renders kind and message when both are set", func() {
		f := &kernel.Fault{Kind: kernel.NoFrameAvailable, Msg: "policy 0 exhausted"}
		Expect(f.Error()).To(Equal("NoFrameAvailable: policy 0 exhausted"))
	})

	It("Abort panics with a *Fault of the given kind", func() {
		Expect(func() {
			kernel.Abort(kernel.EvictionOfShared, "frame %d is shared", 3)
		}).To(PanicWith(MatchError("EvictionOfShared: frame 3 is shared")))
	})

	It("Recover captures an aborted Fault into an error", func() {
		var err error
		func() {
			defer kernel.Recover(&err)
			kernel.Abort(kernel.FileOpenFailure, "boom")
		}()
		Expect(err).To(MatchError("FileOpenFailure: boom"))
	})

	It("Recover re-panics anything that is not a *Fault", func() {
		Expect(func() {
			var err error
			defer kernel.Recover(&err)
			panic("not a fault")
		}).To(Panic())
	})
})
