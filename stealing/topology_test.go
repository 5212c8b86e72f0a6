package stealing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectNeverReturnsEmptyTopology(t *testing.T) {
	topo := Detect()
	assert.NotEmpty(t, topo.Nodes)
	assert.NotEmpty(t, topo.CPUToNode)
}

func TestSingleNodeFallbackCoversEveryCPU(t *testing.T) {
	topo := singleNodeFallback()
	assert.Len(t, topo.Nodes, 1)
	assert.Equal(t, 0, topo.Nodes[0].ID)
	for _, c := range topo.Nodes[0].CPUs {
		assert.Equal(t, 0, topo.CPUToNode[c])
	}
}

func TestTopologyNodeOfUnknownCPUDefaultsToZero(t *testing.T) {
	topo := Topology{CPUToNode: map[int]int{}}
	assert.Equal(t, 0, topo.NodeOf(99))
}

func TestTopologyDistanceBetweenOutOfRangeIsSafe(t *testing.T) {
	topo := Topology{Distance: [][]int{{10}}}
	assert.Equal(t, 20, topo.DistanceBetween(0, 5))
	assert.Equal(t, 10, topo.DistanceBetween(0, 0))
}
