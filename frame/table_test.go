package frame_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nachosvm/vm/frame"
	"github.com/nachosvm/vm/kernel"
)

var _ = Describe("Table", func() {
	var t *frame.Table

	Describe("bump-only mode (policy none)", func() {
		BeforeEach(func() {
			t = frame.New(4, true)
		})

		It("acquires frames by bump count and refuses once exhausted", func() {
			for i := 0; i < 4; i++ {
				f, ok := t.Acquire()
				Expect(ok).To(BeTrue())
				Expect(f).To(Equal(i))
			}
			_, ok := t.Acquire()
			Expect(ok).To(BeFalse())
			Expect(t.NumFramesAllocated()).To(Equal(4))
		})

		It("never reuses a bumped frame even after Release (design note 3)", func() {
			f0, _ := t.Acquire()
			t.Claim(f0, 1, nil, 0, false, 10)
			t.Release(f0)

			// Exhaust the remaining bump budget.
			for i := 0; i < 3; i++ {
				_, ok := t.Acquire()
				Expect(ok).To(BeTrue())
			}
			_, ok := t.Acquire()
			Expect(ok).To(BeFalse(), "bump counter must not decrement on release")
		})
	})

	Describe("free-scan mode (policies 1-4)", func() {
		BeforeEach(func() {
			t = frame.New(3, false)
		})

		It("finds the first free frame", func() {
			f, ok := t.FindFree()
			Expect(ok).To(BeTrue())
			Expect(f).To(Equal(0))
		})

		It("claims a free frame and records ownership with stamps", func() {
			f, _ := t.Acquire()
			t.Claim(f, 7, "thread-a", 2, false, 42)

			e := t.Get(f)
			Expect(e.OwnerPID).To(Equal(7))
			Expect(e.OwnerVPN).To(Equal(2))
			Expect(e.Shared).To(BeFalse())
			Expect(e.FIFOStamp).To(Equal(uint64(42)))
			Expect(e.LRUStamp).To(Equal(uint64(42)))
		})

		It("aborts if Claim targets an already-owned frame", func() {
			f, _ := t.Acquire()
			t.Claim(f, 1, nil, 0, false, 1)

			Expect(func() {
				t.Claim(f, 2, nil, 0, false, 2)
			}).To(PanicWith(BeAssignableToTypeOf(&kernel.Fault{})))
		})

		It("frees a frame on Release so it becomes findable again", func() {
			f, _ := t.Acquire()
			t.Claim(f, 1, nil, 0, false, 1)
			t.Release(f)

			got, ok := t.FindFree()
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(f))
			Expect(t.Get(f).Free()).To(BeTrue())
		})

		It("excludes shared frames from NonSharedOwned", func() {
			f0, _ := t.Acquire()
			t.Claim(f0, 1, nil, 0, false, 1)
			f1, _ := t.Acquire()
			t.Claim(f1, 1, nil, 1, true, 1)

			Expect(t.NonSharedOwned()).To(ConsistOf(f0))
		})

		It("reports OwnedCount across shared and non-shared frames", func() {
			Expect(t.OwnedCount()).To(Equal(0))
			f0, _ := t.Acquire()
			t.Claim(f0, 1, nil, 0, false, 1)
			f1, _ := t.Acquire()
			t.Claim(f1, 1, nil, 1, true, 1)
			Expect(t.OwnedCount()).To(Equal(2))
		})

		It("Touch refreshes LRUStamp and sets the clock bit without changing ownership", func() {
			f, _ := t.Acquire()
			t.Claim(f, 1, nil, 0, false, 1)
			t.MarkDirtyLRUClockCleared(f)
			Expect(t.Get(f).LRUClock).To(BeFalse())

			t.Touch(f, 99)
			e := t.Get(f)
			Expect(e.LRUStamp).To(Equal(uint64(99)))
			Expect(e.LRUClock).To(BeTrue())
			Expect(e.OwnerPID).To(Equal(1))
		})
	})
})
