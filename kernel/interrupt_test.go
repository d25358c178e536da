package kernel_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nachosvm/vm/kernel"
)

var _ = Describe("Preemption", func() {
	It("starts enabled", func() {
		p := kernel.NewPreemption()
		Expect(p.Enabled()).To(BeTrue())
	})

	It("disables across a critical section and restores on exit", func() {
		p := kernel.NewPreemption()

		func() {
			restore := p.Disable()
			defer restore()
			Expect(p.Enabled()).To(BeFalse())
		}()

		Expect(p.Enabled()).To(BeTrue())
	})

	It("restores correctly even when disabled twice in a row", func() {
		p := kernel.NewPreemption()
		restore1 := p.Disable()
		restore2 := p.Disable()
		restore2()
		Expect(p.Enabled()).To(BeFalse())
		restore1()
		Expect(p.Enabled()).To(BeTrue())
	})
})
