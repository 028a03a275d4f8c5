// Package handle implements the initialize-once façade over a payload store.
//
// A Handle starts without a store and moves to the installed state with the
// first successful Install* call. That transition happens exactly once:
// every later install attempt returns payload.ErrAlreadyInitialized and the
// installed store keeps serving. Installation is a single atomic
// compare-and-swap, so concurrent installers race safely and exactly one wins.
//
// Loaders:
//
//   - InstallFromBytes / InstallFromString: one payload
//   - InstallFromLines: one payload per line of text
//   - InstallFromFile / InstallFromReader: one payload read from a source
//   - InstallFromLinesFile / InstallFromLinesReader: one payload per line read from a source
//
// Sources that cannot be read return payload.ErrSourceUnavailable (wrapping
// the I/O error) and leave the handle uninstalled.
//
// Read Paths:
//
//	NextBody and BodyByID never fail. Without a store, or for an id the store
//	does not know, they return an empty body (and the default id for NextBody),
//	so a misconfigured server answers with empty responses instead of errors.
//	TryNextBody and TryBodyByID are the strict variants that report these
//	cases as payload.ErrNotInstalled and payload.ErrUnknownPayload; which of
//	the two is used is a deployment decision of the server.
//
// Usage Example:
//
//	h := handle.New()
//	if err := h.InstallFromLines("alpha\nbeta\ngamma"); err != nil {
//		return err
//	}
//
//	id, body := h.NextBody()        // 0, "alpha"
//	_, _ = io.Copy(w, body)
//
//	replay := h.BodyByID(id)        // "alpha" again, cursor unchanged
//
// Handles are meant to be created once and passed to the request handlers
// that need them. Global returns a lazily created process-wide handle for
// code that cannot be wired explicitly.
package handle
