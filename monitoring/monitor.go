// Package monitoring serves the live state of the simulated processes over
// HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/pagingsim/mem/physmem"
	"github.com/sarchlab/pagingsim/monitoring/web"
	"github.com/sarchlab/pagingsim/process"
	"github.com/sarchlab/pagingsim/tracing"
	gopsutil "github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a simulation into a server that reports the memory state of
// the registered processes.
type Monitor struct {
	portNumber      int
	profileDuration time.Duration

	lock      sync.Mutex
	processes []*process.Process
	stores    []*physmem.Storage
	counter   *tracing.EventCounter
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		slog.Warn("monitor port is not allowed, using a random port",
			"port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterProcess adds a process and its stores to the monitor.
func (m *Monitor) RegisterProcess(p *process.Process) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.processes = append(m.processes, p)

	m.registerStore(p.RAM)
	for _, s := range p.Swaps {
		m.registerStore(s)
	}
}

func (m *Monitor) registerStore(s *physmem.Storage) {
	for _, known := range m.stores {
		if known == s {
			return
		}
	}

	m.stores = append(m.stores, s)
}

// RegisterEventCounter sets the counter reported by /api/counters.
func (m *Monitor) RegisterEventCounter(c *tracing.EventCounter) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.counter = c
}

// Handler returns the router that serves the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/processes", m.listProcesses)
	r.HandleFunc("/api/process/{name}", m.processDetails)
	r.HandleFunc("/api/process/{name}/pagetable", m.pageTable)
	r.HandleFunc("/api/process/{name}/regions", m.regions)
	r.HandleFunc("/api/stores", m.listStores)
	r.HandleFunc("/api/store/{name}", m.storeDump)
	r.HandleFunc("/api/counters", m.listCounters)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Handler())
		if err != nil {
			slog.Error("monitor stopped", "err", err)
		}
	}()

	return url, nil
}

func (m *Monitor) listProcesses(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	procs := append([]*process.Process(nil), m.processes...)
	m.lock.Unlock()

	snapshots := make([]any, 0, len(procs))
	for _, p := range procs {
		snapshots = append(snapshots, p.MM.Snapshot())
	}

	writeJSON(w, snapshots)
}

func (m *Monitor) processDetails(w http.ResponseWriter, r *http.Request) {
	p := m.findProcessOr404(w, mux.Vars(r)["name"])
	if p == nil {
		return
	}

	snapshot := p.MM.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(2)

	w.Header().Set("Content-Type", "application/json")

	err := serializer.Serialize(w)
	logOnErr(err)
}

func (m *Monitor) pageTable(w http.ResponseWriter, r *http.Request) {
	p := m.findProcessOr404(w, mux.Vars(r)["name"])
	if p == nil {
		return
	}

	start, err := queryUint(r, "start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	end, err := queryUint(r, "end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	logOnErr(p.MM.DumpPageTable(w, start, end))
}

func (m *Monitor) regions(w http.ResponseWriter, r *http.Request) {
	p := m.findProcessOr404(w, mux.Vars(r)["name"])
	if p == nil {
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	logOnErr(p.MM.DumpRegions(w))
}

type storeRsp struct {
	Name       string `json:"name"`
	FrameSize  uint64 `json:"frame_size"`
	NumFrames  uint64 `json:"num_frames"`
	FreeFrames int    `json:"free_frames"`
}

func (m *Monitor) listStores(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	rsp := make([]storeRsp, 0, len(m.stores))
	for _, s := range m.stores {
		rsp = append(rsp, storeRsp{
			Name:       s.Name(),
			FrameSize:  s.FrameSize(),
			NumFrames:  s.NumFrames(),
			FreeFrames: s.NumFreeFrames(),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) storeDump(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m.lock.Lock()
	var store *physmem.Storage
	for _, s := range m.stores {
		if s.Name() == name {
			store = s
		}
	}
	m.lock.Unlock()

	if store == nil {
		http.Error(w, "Store not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	logOnErr(store.Dump(w))
}

func (m *Monitor) listCounters(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	counter := m.counter
	m.lock.Unlock()

	if counter == nil {
		writeJSON(w, map[string]any{})
		return
	}

	writeJSON(w, counter.Snapshot())
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := gopsutil.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func (m *Monitor) findProcessOr404(
	w http.ResponseWriter,
	name string,
) *process.Process {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, p := range m.processes {
		if p.Name() == name {
			return p
		}
	}

	http.Error(w, "Process not found", http.StatusNotFound)

	return nil
}

func queryUint(r *http.Request, key string) (uint64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}

	return strconv.ParseUint(s, 10, 64)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	logOnErr(err)
}

func logOnErr(err error) {
	if err != nil {
		slog.Error("monitor failed to respond", "err", err)
	}
}
