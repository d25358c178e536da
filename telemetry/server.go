package telemetry

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nachosvm/vm/frame"
	"github.com/nachosvm/vm/kernel"
)

// DebugServer exposes a running kernel's frame table and fault counters
// as read-only JSON, grounded on akita's monitoring.Monitor: a
// builder-configured struct, a gorilla/mux router with one HandleFunc
// per endpoint, and net.Listen+http.Serve run in a background goroutine.
type DebugServer struct {
	frames     *frame.Table
	stats      kernel.Stats
	portNumber int
}

// NewDebugServer creates a server with no frame table or stats attached
// yet; use WithFrameTable/WithStats/WithPortNumber to configure it.
func NewDebugServer() *DebugServer {
	return &DebugServer{}
}

// WithFrameTable registers the frame table to report on.
func (s *DebugServer) WithFrameTable(t *frame.Table) *DebugServer {
	s.frames = t
	return s
}

// WithStats registers the statistics sink to report on.
func (s *DebugServer) WithStats(stats kernel.Stats) *DebugServer {
	s.stats = stats
	return s
}

// WithPortNumber sets the port to listen on. A value below 1000 is
// rejected the way akita's Monitor rejects privileged ports, falling
// back to a random port instead.
func (s *DebugServer) WithPortNumber(port int) *DebugServer {
	if port < 1000 {
		port = 0
	}
	s.portNumber = port
	return s
}

// Start launches the HTTP server in the background and returns the port
// it bound to.
func (s *DebugServer) Start() (int, error) {
	r := mux.NewRouter()
	r.HandleFunc("/api/frames", s.listFrames)
	r.HandleFunc("/api/frames/{index}", s.frameDetail)
	r.HandleFunc("/api/stats", s.listStats)

	actualPort := ":0"
	if s.portNumber >= 1000 {
		actualPort = ":" + strconv.Itoa(s.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return 0, fmt.Errorf("telemetry: listening: %w", err)
	}

	go func() {
		if err := http.Serve(listener, r); err != nil {
			log.Panic(err)
		}
	}()

	return listener.Addr().(*net.TCPAddr).Port, nil
}

func (s *DebugServer) listFrames(w http.ResponseWriter, _ *http.Request) {
	if s.frames == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	fmt.Fprint(w, "[")
	for i := 0; i < s.frames.Size(); i++ {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		writeFrameJSON(w, i, s.frames.Get(i))
	}
	fmt.Fprint(w, "]")
}

func (s *DebugServer) frameDetail(w http.ResponseWriter, r *http.Request) {
	if s.frames == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || idx < 0 || idx >= s.frames.Size() {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "frame not found")
		return
	}

	writeFrameJSON(w, idx, s.frames.Get(idx))
}

func writeFrameJSON(w http.ResponseWriter, index int, e frame.Entry) {
	fmt.Fprintf(w,
		`{"index":%d,"free":%t,"owner_pid":%d,"owner_vpn":%d,"shared":%t}`,
		index, e.Free(), e.OwnerPID, e.OwnerVPN, e.Shared)
}

func (s *DebugServer) listStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if c, ok := s.stats.(interface {
		TotalPageFaults() uint64
		SharedPageFaults() uint64
	}); ok {
		fmt.Fprintf(w, `{"ticks":%d,"total_page_faults":%d,"shared_page_faults":%d}`,
			s.stats.Ticks(), c.TotalPageFaults(), c.SharedPageFaults())
		return
	}
	fmt.Fprintf(w, `{"ticks":%d}`, s.stats.Ticks())
}
