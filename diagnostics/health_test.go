package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckEmptyIsUnknown(t *testing.T) {
	assert.Equal(t, Unknown, Check(nil))
}

func TestCheckPrecedenceUnhealthyWins(t *testing.T) {
	s := Check([]ComponentStatus{
		{Name: "queue", Status: Healthy},
		{Name: "workers", Status: Unhealthy},
		{Name: "steal", Status: Degraded},
	})
	assert.Equal(t, Unhealthy, s)
}

func TestCheckPrecedenceDegradedBeatsUnknown(t *testing.T) {
	s := Check([]ComponentStatus{
		{Name: "queue", Status: Unknown},
		{Name: "workers", Status: Degraded},
	})
	assert.Equal(t, Degraded, s)
}

func TestCheckAllHealthy(t *testing.T) {
	s := Check([]ComponentStatus{{Status: Healthy}, {Status: Healthy}})
	assert.Equal(t, Healthy, s)
}

func TestHTTPStatusCodeMapping(t *testing.T) {
	assert.Equal(t, 200, HTTPStatusCode(Healthy))
	assert.Equal(t, 200, HTTPStatusCode(Degraded))
	assert.Equal(t, 503, HTTPStatusCode(Unhealthy))
	assert.Equal(t, 503, HTTPStatusCode(Unknown))
}
