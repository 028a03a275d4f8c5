package handle

import (
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/payload"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

var Logger = logger.GetLogger("handle")

// Handle installs exactly one payload store and serves bodies from it.
// All methods are safe for concurrent use. The zero value is an uninstalled
// handle, but handles should be created with New and passed around as pointers.
type Handle struct {
	store atomic.Pointer[payload.IPayloadStore]
}

// New creates a new handle without a store.
func New() *Handle {
	return &Handle{}
}

var (
	globalOnce   sync.Once
	globalHandle *Handle
)

// Global returns the process-wide handle. It is created on first use.
// Prefer passing a handle created with New to the code that needs it, this
// exists for callers that cannot be given one explicitly.
func Global() *Handle {
	globalOnce.Do(func() {
		globalHandle = New()
	})
	return globalHandle
}

// --------------------------------------------------------------------------
// Installation
// --------------------------------------------------------------------------

// Install installs the given store. Only the first successful call succeeds,
// every later call returns payload.ErrAlreadyInitialized and leaves the
// installed store untouched.
func (h *Handle) Install(s payload.IPayloadStore) error {
	if s == nil {
		return payload.ErrEmptyStore
	}
	if !h.store.CompareAndSwap(nil, &s) {
		return payload.ErrAlreadyInitialized
	}
	Logger.Infof("installed payload store with %d payloads (%d bytes)", s.Len(), s.Size())
	return nil
}

// InstallFromBytes installs a store serving a copy of data as its only payload.
func (h *Handle) InstallFromBytes(data []byte) error {
	if h.IsInstalled() {
		return payload.ErrAlreadyInitialized
	}
	return h.Install(payload.NewSingle(data))
}

// InstallFromString installs a store serving s as its only payload.
func (h *Handle) InstallFromString(s string) error {
	return h.InstallFromBytes([]byte(s))
}

// InstallFromLines installs a store serving one payload per line of text.
func (h *Handle) InstallFromLines(text string) error {
	if h.IsInstalled() {
		return payload.ErrAlreadyInitialized
	}
	s, err := payload.NewFromLines([]byte(text))
	if err != nil {
		return err
	}
	return h.Install(s)
}

// InstallFromReader installs a store serving everything read from r as its only payload.
func (h *Handle) InstallFromReader(r io.Reader) error {
	if h.IsInstalled() {
		return payload.ErrAlreadyInitialized
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return payload.WrapError(payload.RetCSourceUnavailable, "failed to read payload source", err)
	}
	return h.Install(payload.NewSingle(data))
}

// InstallFromLinesReader installs a store serving one payload per line read from r.
func (h *Handle) InstallFromLinesReader(r io.Reader) error {
	if h.IsInstalled() {
		return payload.ErrAlreadyInitialized
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return payload.WrapError(payload.RetCSourceUnavailable, "failed to read payload source", err)
	}
	s, err := payload.NewFromLines(data)
	if err != nil {
		return err
	}
	return h.Install(s)
}

// InstallFromFile installs a store serving the content of the file at path as its only payload.
func (h *Handle) InstallFromFile(path string) error {
	if h.IsInstalled() {
		return payload.ErrAlreadyInitialized
	}
	data, err := readFile(path)
	if err != nil {
		return err
	}
	return h.Install(payload.NewSingle(data))
}

// InstallFromLinesFile installs a store serving one payload per line of the file at path.
func (h *Handle) InstallFromLinesFile(path string) error {
	if h.IsInstalled() {
		return payload.ErrAlreadyInitialized
	}
	data, err := readFile(path)
	if err != nil {
		return err
	}
	s, err := payload.NewFromLines(data)
	if err != nil {
		return err
	}
	return h.Install(s)
}

// --------------------------------------------------------------------------
// Read paths
// --------------------------------------------------------------------------

// NextBody returns the id and body of the next payload in round-robin order.
// If no store is installed, the default id and an empty body are returned.
func (h *Handle) NextBody() (payload.ID, *payload.Body) {
	id, body, _ := h.TryNextBody()
	return id, body
}

// BodyByID returns the body of the payload with the given id without
// advancing the round-robin cursor. Unknown ids and a missing store yield an
// empty body.
func (h *Handle) BodyByID(id payload.ID) *payload.Body {
	body, _ := h.TryBodyByID(id)
	return body
}

// TryNextBody works like NextBody but reports a missing store as
// payload.ErrNotInstalled. The returned body is never nil.
func (h *Handle) TryNextBody() (payload.ID, *payload.Body, error) {
	s := h.load()
	if s == nil {
		return payload.ID{}, payload.EmptyBody(), payload.ErrNotInstalled
	}
	id, data := s.Next()
	return id, payload.NewBody(data), nil
}

// TryBodyByID works like BodyByID but reports a missing store as
// payload.ErrNotInstalled and unknown ids as payload.ErrUnknownPayload.
// The returned body is never nil.
func (h *Handle) TryBodyByID(id payload.ID) (*payload.Body, error) {
	s := h.load()
	if s == nil {
		return payload.EmptyBody(), payload.ErrNotInstalled
	}
	data, ok := s.Get(id)
	if !ok {
		Logger.Debugf("lookup of unknown payload id %s (store has %d payloads)", id, s.Len())
		return payload.EmptyBody(), payload.NewError(payload.RetCUnknownPayload, fmt.Sprintf("unknown payload id %s", id))
	}
	return payload.NewBody(data), nil
}

// --------------------------------------------------------------------------
// Info
// --------------------------------------------------------------------------

// IsInstalled reports whether a store has been installed.
func (h *Handle) IsInstalled() bool {
	return h.load() != nil
}

// Len returns the number of payloads, or 0 if no store is installed.
func (h *Handle) Len() int {
	if s := h.load(); s != nil {
		return s.Len()
	}
	return 0
}

// Size returns the total number of payload bytes, or 0 if no store is installed.
func (h *Handle) Size() int {
	if s := h.load(); s != nil {
		return s.Size()
	}
	return 0
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (h *Handle) load() payload.IPayloadStore {
	p := h.store.Load()
	if p == nil {
		return nil
	}
	return *p
}

// readFile reads a payload source from disk
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, payload.WrapError(payload.RetCSourceUnavailable, fmt.Sprintf("failed to read %s", path), err)
	}
	return data, nil
}
