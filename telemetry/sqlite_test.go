package telemetry_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nachosvm/vm/telemetry"
)

var _ = Describe("SQLiteSink", func() {
	It("counts page faults and shared page faults independently of ticks", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "stats")
		sink := telemetry.NewSQLiteSink(dbPath)
		Expect(sink.Init()).To(Succeed())

		sink.Tick()
		sink.Tick()
		sink.AddPageFault()
		sink.AddPageFault()
		sink.AddSharedPageFault()

		Expect(sink.Ticks()).To(Equal(uint64(2)))
		Expect(sink.TotalPageFaults()).To(Equal(uint64(2)))
		Expect(sink.SharedPageFaults()).To(Equal(uint64(1)))

		sink.Flush()
	})

	It("refuses to initialize twice onto the same file", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "dup")
		first := telemetry.NewSQLiteSink(dbPath)
		Expect(first.Init()).To(Succeed())

		second := telemetry.NewSQLiteSink(dbPath)
		Expect(second.Init()).To(HaveOccurred())
	})
})
