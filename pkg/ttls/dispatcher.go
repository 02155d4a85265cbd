package ttls

import (
	"runtime"
	"unsafe"

	"github.com/pion/logging"
)

// Status is the raw outcome of one platform control call.
type Status struct {
	// ReturnCode is negative on failure.
	ReturnCode int
	Errno      int
	Errno2     int
}

// Failed returns true if the call failed.
func (s Status) Failed() bool {
	return s.ReturnCode < 0
}

// Syscaller performs the blocking platform control call on fd. block holds the
// encoded control block; out is the output buffer whose address and length
// are already written into block, or nil when no certificate is requested.
type Syscaller interface {
	Control(fd int, block, out []byte) Status
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Syscaller performs the call. Nil selects PlatformSyscaller.
	Syscaller Syscaller

	// LoggerFactory for control call logging (optional).
	LoggerFactory logging.LoggerFactory
}

// Dispatcher encodes a request into a control block and issues exactly one
// control call for it. It holds no per-descriptor state and is safe for
// concurrent use when the Syscaller is.
type Dispatcher struct {
	sys Syscaller
	log logging.LeveledLogger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	sys := config.Syscaller
	if sys == nil {
		var err error
		if sys, err = PlatformSyscaller(); err != nil {
			return nil, err
		}
	}

	d := &Dispatcher{sys: sys}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("ttls")
	}
	return d, nil
}

// Issue performs one control call on fd.
//
// The version and request type are written into block. The address and length
// of out are written only when ReturnCertificate is requested, and zero
// otherwise; out stays pinned for the duration of the call. On failure the
// returned error is a *ControlCallError and the content of block is undefined.
// Issue never retries.
func (d *Dispatcher) Issue(fd int, req Request, block, out []byte) error {
	if !req.IsValid() {
		return ErrInvalidRequest
	}
	if len(block) < BlockSize {
		return ErrShortBlock
	}
	block = block[:BlockSize]

	h := Header{Version: Version1, Request: req}
	if req.WantsCertificate() {
		if len(out) == 0 {
			return ErrNoOutputBuffer
		}
		var pin runtime.Pinner
		pin.Pin(&out[0])
		defer pin.Unpin()

		h.BufferAddr = uint64(uintptr(unsafe.Pointer(&out[0])))
		h.BufferLen = uint32(len(out))
	} else {
		out = nil
	}
	if err := EncodeHeader(block, h); err != nil {
		return err
	}

	if d.log != nil {
		d.log.Tracef("control fd=%d request=%s buffer=%d", fd, req, h.BufferLen)
	}

	st := d.sys.Control(fd, block, out)
	runtime.KeepAlive(out)
	if st.Failed() {
		if d.log != nil {
			d.log.Debugf("control fd=%d request=%s failed: rc=%d errno=%d errno2=0x%08X",
				fd, req, st.ReturnCode, st.Errno, uint32(st.Errno2))
		}
		return &ControlCallError{
			ReturnCode: st.ReturnCode,
			Errno:      st.Errno,
			Errno2:     st.Errno2,
		}
	}
	return nil
}
