package telemetry_test

import (
	"fmt"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nachosvm/vm/frame"
	"github.com/nachosvm/vm/kernel"
	"github.com/nachosvm/vm/telemetry"
)

var _ = Describe("DebugServer", func() {
	It("reports frame ownership and stats over HTTP", func() {
		t := frame.New(2, false)
		f, _ := t.Acquire()
		t.Claim(f, 7, nil, 3, false, 1)

		stats := kernel.NewInMemoryStats()
		stats.Tick()
		stats.AddPageFault()

		srv := telemetry.NewDebugServer().WithFrameTable(t).WithStats(stats).WithPortNumber(0)
		port, err := srv.Start()
		Expect(err).NotTo(HaveOccurred())

		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/frames", port))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(ContainSubstring(`"owner_pid":7`))

		resp2, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/stats", port))
		Expect(err).NotTo(HaveOccurred())
		defer resp2.Body.Close()
		body2, _ := io.ReadAll(resp2.Body)
		Expect(string(body2)).To(ContainSubstring(`"ticks":1`))
	})

	It("404s on an unknown frame index", func() {
		t := frame.New(1, false)
		srv := telemetry.NewDebugServer().WithFrameTable(t)
		port, err := srv.Start()
		Expect(err).NotTo(HaveOccurred())

		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/frames/99", port))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
