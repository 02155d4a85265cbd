package ttls

import (
	"sync"
	"syscall"
)

// Call records one control call seen by a FakeSyscaller.
type Call struct {
	FD        int
	Request   Request
	BufferLen uint32
}

// FakeSyscaller simulates the platform control call. Queries fill the
// response area from a configured Response and copy the configured
// certificate into the output buffer. Commands only record the call.
type FakeSyscaller struct {
	mu       sync.Mutex
	response Response
	cert     []byte
	failure  *Status
	calls    []Call
}

// NewFakeSyscaller creates a fake that answers queries with resp and cert.
func NewFakeSyscaller(resp Response, cert []byte) *FakeSyscaller {
	return &FakeSyscaller{
		response: resp,
		cert:     append([]byte(nil), cert...),
	}
}

// SetResponse replaces the query response.
func (f *FakeSyscaller) SetResponse(resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.response = resp
}

// SetCertificate replaces the partner certificate.
func (f *FakeSyscaller) SetCertificate(cert []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cert = append([]byte(nil), cert...)
}

// SetFailure makes every following call fail with st. Nil clears it.
func (f *FakeSyscaller) SetFailure(st *Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failure = st
}

// Calls returns a copy of the recorded calls.
func (f *FakeSyscaller) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns the number of recorded calls.
func (f *FakeSyscaller) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Reset forgets the recorded calls.
func (f *FakeSyscaller) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Control implements Syscaller.
func (f *FakeSyscaller) Control(fd int, block, out []byte) Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, err := ParseHeader(block)
	if err != nil || h.Version != Version1 {
		return Status{ReturnCode: -1, Errno: int(syscall.EINVAL)}
	}
	f.calls = append(f.calls, Call{FD: fd, Request: h.Request, BufferLen: h.BufferLen})

	if f.failure != nil {
		return *f.failure
	}
	if !h.Request.IsQuery() {
		return Status{}
	}

	resp := f.response
	resp.CertLen = 0
	if h.Request.WantsCertificate() {
		copy(out[:h.BufferLen], f.cert)
		resp.CertLen = uint32(len(f.cert))
	}
	if err := resp.EncodeTo(block); err != nil {
		return Status{ReturnCode: -1, Errno: int(syscall.EINVAL)}
	}
	return Status{}
}
