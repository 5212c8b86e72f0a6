package stealing

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// Node describes one NUMA node and the OS logical CPUs that belong to it.
type Node struct {
	ID   int
	CPUs []int
}

// Topology is a snapshot of the machine's NUMA layout. Distance[i][j] is the
// relative memory-access cost from Nodes[i] to Nodes[j] (10 is "local", 20 remote).
type Topology struct {
	Nodes     []Node
	CPUToNode map[int]int
	Distance  [][]int
}

const sysNodePath = "/sys/devices/system/node"

// Detect probes the machine's NUMA topology. On anything other than Linux,
// or when /sys/devices/system/node can't be read (containers, restricted
// sandboxes, non-NUMA hardware), it falls back to a single node holding
// every logical CPU GOMAXPROCS reports — the resolved answer to spec §9's
// "NUMA topology unavailable" Open Question: a single-node topology is
// always a structurally valid input to every Policy, so callers never need
// a separate no-NUMA code path.
func Detect() Topology {
	if runtime.GOOS == "linux" {
		if topo, ok := detectLinux(); ok {
			return topo
		}
	}
	return singleNodeFallback()
}

func singleNodeFallback() Topology {
	n := runtime.GOMAXPROCS(0)
	cpus := make([]int, n)
	cpuToNode := make(map[int]int, n)
	for i := 0; i < n; i++ {
		cpus[i] = i
		cpuToNode[i] = 0
	}
	return Topology{
		Nodes:     []Node{{ID: 0, CPUs: cpus}},
		CPUToNode: cpuToNode,
		Distance:  [][]int{{10}},
	}
}

func detectLinux() (Topology, bool) {
	entries, err := os.ReadDir(sysNodePath)
	if err != nil {
		return Topology{}, false
	}

	var nodeIDs []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "node") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "node"))
		if err != nil {
			continue
		}
		nodeIDs = append(nodeIDs, id)
	}
	if len(nodeIDs) == 0 {
		return Topology{}, false
	}
	sort.Ints(nodeIDs)

	nodes := make([]Node, 0, len(nodeIDs))
	cpuToNode := make(map[int]int)
	for _, id := range nodeIDs {
		cpus := readNodeCPUs(id)
		nodes = append(nodes, Node{ID: id, CPUs: cpus})
		for _, c := range cpus {
			cpuToNode[c] = id
		}
	}

	distance := make([][]int, len(nodes))
	for i := range distance {
		distance[i] = readNodeDistance(nodeIDs[i], len(nodes))
		if distance[i] == nil {
			distance[i] = uniformDistance(i, len(nodes))
		}
	}

	return Topology{Nodes: nodes, CPUToNode: cpuToNode, Distance: distance}, true
}

func uniformDistance(self, n int) []int {
	row := make([]int, n)
	for j := range row {
		if j == self {
			row[j] = 10
		} else {
			row[j] = 20
		}
	}
	return row
}

func readNodeCPUs(nodeID int) []int {
	dir := filepath.Join(sysNodePath, "node"+strconv.Itoa(nodeID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var cpus []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "cpu") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(name, "cpu"))
		if err != nil {
			continue
		}
		cpus = append(cpus, id)
	}
	sort.Ints(cpus)
	return cpus
}

func readNodeDistance(nodeID, n int) []int {
	path := filepath.Join(sysNodePath, "node"+strconv.Itoa(nodeID), "distance")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	fields := strings.Fields(string(data))
	if len(fields) != n {
		return nil
	}
	row := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil
		}
		row[i] = v
	}
	return row
}

// NodeOf returns the NUMA node a logical CPU belongs to, or 0 if unknown.
func (t Topology) NodeOf(cpu int) int {
	if n, ok := t.CPUToNode[cpu]; ok {
		return n
	}
	return 0
}

// DistanceBetween returns the relative access cost between two nodes, or
// 20 (the remote distance) if either index is out of range.
func (t Topology) DistanceBetween(a, b int) int {
	if a < 0 || a >= len(t.Distance) || b < 0 || b >= len(t.Distance[a]) {
		return 20
	}
	return t.Distance[a][b]
}
