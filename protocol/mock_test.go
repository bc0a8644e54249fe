package protocol

import (
	"errors"
	"testing"

	"github.com/scarlett-tools/scarlettd/memorywriter"
	"github.com/scarlett-tools/scarlettd/transport"
)

// mockTransport records outgoing transfers and replays queued responses.
type mockTransport struct {
	outs    [][]byte
	outReqs []transport.ControlRequest

	responses [][]byte
	inReqs    []transport.ControlRequest
}

func (m *mockTransport) ControlOut(req transport.ControlRequest, data []byte) (int, error) {
	m.outReqs = append(m.outReqs, req)
	buf := make([]byte, len(data))
	copy(buf, data)
	m.outs = append(m.outs, buf)
	return len(data), nil
}

func (m *mockTransport) ControlIn(req transport.ControlRequest, length int) ([]byte, error) {
	m.inReqs = append(m.inReqs, req)
	if len(m.responses) == 0 {
		return nil, errors.New("mock: no response queued")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	if len(resp) > length {
		resp = resp[:length]
	}
	return resp, nil
}

func (m *mockTransport) BulkOut(endpoint byte, data []byte) (int, error) {
	return 0, errors.New("mock: no bulk")
}

func (m *mockTransport) BulkIn(endpoint byte, length int) ([]byte, error) {
	return nil, errors.New("mock: no bulk")
}

func (m *mockTransport) IsConnected() bool {
	return true
}

func (m *mockTransport) Name() string {
	return "mock"
}

func (m *mockTransport) transfers() int {
	return len(m.outs) + len(m.inReqs)
}

func testWriter(t *testing.T) *memorywriter.MemoryWriter {
	t.Helper()
	mw, err := memorywriter.New(100, 10, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	return mw
}
