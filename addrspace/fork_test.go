package addrspace_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nachosvm/vm/addrspace"
	"github.com/nachosvm/vm/kernel"
)

var _ = Describe("NewForkCopy (scenario S2: fork with a shared page)", func() {
	It("duplicates valid private pages into fresh frames and shares shared pages", func() {
		tk := newTestKernel(kernel.PolicyFIFO, 32, true)
		parent, err := addrspace.NewFromExecutable(tk.K, "prog.noff", 1, kernel.ThreadHandle{PID: 1})
		Expect(err).NotTo(HaveOccurred())
		tk.Threads.Register(kernel.ThreadHandle{PID: 1, Space: parent})

		parent.DemandPage(0)
		parent.AllocateShared(1)
		sharedVPN := parent.NumPages() - 1

		mem := tk.Sim.MainMemory()
		parentFrame0 := parent.Pages()[0].PPN
		mem[parentFrame0*kernel.PageSize] = 0x42

		child, err := addrspace.NewForkCopy(tk.K, parent, 2, kernel.ThreadHandle{PID: 2})
		Expect(err).NotTo(HaveOccurred())

		Expect(child.NumPages()).To(Equal(parent.NumPages()))

		// Private valid page: distinct frame, identical bytes.
		cp0 := child.Pages()[0]
		Expect(cp0.Valid).To(BeTrue())
		Expect(cp0.PPN).NotTo(Equal(parentFrame0))
		Expect(mem[cp0.PPN*kernel.PageSize]).To(Equal(byte(0x42)))

		// Shared page: same frame as the parent, not duplicated.
		pShared := parent.Pages()[sharedVPN]
		cShared := child.Pages()[sharedVPN]
		Expect(cShared.Shared).To(BeTrue())
		Expect(cShared.PPN).To(Equal(pShared.PPN))

		// Never-faulted page: still invalid in the child too.
		Expect(child.Pages()[2].Valid).To(BeFalse())
	})

	It("biases the replacement policy away from a frame it just copied from", func() {
		tk := newTestKernel(kernel.PolicyFIFO, 3, true)
		parent, err := addrspace.NewFromExecutable(tk.K, "prog.noff", 1, kernel.ThreadHandle{PID: 1})
		Expect(err).NotTo(HaveOccurred())
		tk.Threads.Register(kernel.ThreadHandle{PID: 1, Space: parent})
		parent.DemandPage(0)

		before := tk.K.Frames.Get(parent.Pages()[0].PPN).FIFOStamp

		_, err = addrspace.NewForkCopy(tk.K, parent, 2, kernel.ThreadHandle{PID: 2})
		Expect(err).NotTo(HaveOccurred())

		after := tk.K.Frames.Get(parent.Pages()[0].PPN).FIFOStamp
		Expect(after).To(BeNumerically(">=", before))
	})

	It("invokes OnPageCopied once per copied private page, charging the 1000-tick cost", func() {
		tk := newTestKernel(kernel.PolicyFIFO, 32, true)
		parent, err := addrspace.NewFromExecutable(tk.K, "prog.noff", 1, kernel.ThreadHandle{PID: 1})
		Expect(err).NotTo(HaveOccurred())
		tk.Threads.Register(kernel.ThreadHandle{PID: 1, Space: parent})
		parent.DemandPage(0)
		parent.DemandPage(1)

		var copies []int
		parent.OnPageCopied = func(ticks int) { copies = append(copies, ticks) }

		child, err := addrspace.NewForkCopy(tk.K, parent, 2, kernel.ThreadHandle{PID: 2})
		Expect(err).NotTo(HaveOccurred())

		Expect(copies).To(Equal([]int{1000, 1000}))
		Expect(child.OnPageCopied).NotTo(BeNil(), "children inherit the hook for their own descendants")
	})

	It("propagates BackedUp/Dirty/Use/ReadOnly to the child even for an invalid page", func() {
		tk := newTestKernel(kernel.PolicyFIFO, 1, true)
		parent, err := addrspace.NewFromExecutable(tk.K, "prog.noff", 1, kernel.ThreadHandle{PID: 1})
		Expect(err).NotTo(HaveOccurred())
		tk.Threads.Register(kernel.ThreadHandle{PID: 1, Space: parent})

		// Fault page 0 in, mark it dirty, then force it out via a second
		// fault so it ends up invalid, backed up, with its bytes in the
		// parent's Backup buffer rather than in any frame.
		parent.DemandPage(0)
		mem := tk.Sim.MainMemory()
		mem[parent.Pages()[0].PPN*kernel.PageSize] = 0xCD
		ppte := &parent.Pages()[0]
		ppte.Dirty = true
		parent.DemandPage(1)

		Expect(parent.Pages()[0].Valid).To(BeFalse())
		Expect(parent.Pages()[0].BackedUp).To(BeTrue())

		child, err := addrspace.NewForkCopy(tk.K, parent, 2, kernel.ThreadHandle{PID: 2})
		Expect(err).NotTo(HaveOccurred())
		tk.Threads.Register(kernel.ThreadHandle{PID: 2, Space: child})

		cpte := child.Pages()[0]
		Expect(cpte.Valid).To(BeFalse())
		Expect(cpte.BackedUp).To(BeTrue(), "child must inherit BackedUp so its first fault restores from Backup")
		Expect(cpte.Dirty).To(BeTrue())

		// The child's own Backup buffer, not the parent's, must hold the
		// bytes: faulting page 0 in the child restores 0xCD without ever
		// touching the parent's address space.
		child.DemandPage(0)
		Expect(mem[child.Pages()[0].PPN*kernel.PageSize]).To(Equal(byte(0xCD)))
	})
})
