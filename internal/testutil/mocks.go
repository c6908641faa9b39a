package testutil

import (
	"net/url"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/bridge"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/navigation"
)

// MockSurface is a mock native loading surface.
type MockSurface struct {
	mock.Mock
}

func (m *MockSurface) SetStatusText(text string) { m.Called(text) }
func (m *MockSurface) StopProgress() { m.Called() }
func (m *MockSurface) Remove(animated bool) { m.Called(animated) }

// NewMockSurface returns a surface that accepts any call.
func NewMockSurface() *MockSurface {
	m := &MockSurface{}
	m.On("SetStatusText", mock.Anything).Maybe()
	m.On("StopProgress").Maybe()
	m.On("Remove", mock.Anything).Maybe()
	return m
}

// MockShell is a mock content shell.
type MockShell struct {
	mock.Mock
}

func (m *MockShell) Load(req navigation.Request) { m.Called(req) }
func (m *MockShell) EvaluateScript(script string) { m.Called(script) }
func (m *MockShell) AddUserScript(script bridge.UserScript) { m.Called(script) }
func (m *MockShell) OpenExternal(u *url.URL) { m.Called(u) }

// NewMockShell returns a shell that accepts any call.
func NewMockShell() *MockShell {
	m := &MockShell{}
	m.On("Load", mock.Anything).Maybe()
	m.On("EvaluateScript", mock.Anything).Maybe()
	m.On("AddUserScript", mock.Anything).Maybe()
	m.On("OpenExternal", mock.Anything).Maybe()
	return m
}

// CallsTo returns the recorded calls of method in order.
func CallsTo(m *mock.Mock, method string) []mock.Call {
	var out []mock.Call
	for _, c := range m.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}
