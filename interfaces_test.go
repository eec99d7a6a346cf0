package cinehub

import (
	"testing"
)

func TestInterfaces(_ *testing.T) {
	var _ Storage = NewMockStorage()
	var _ Cache = NewMockCache()
	var _ Logger = &MockLogger{}
	var _ Logger = NewDefaultLogger()
}
