package mempool

import (
	"errors"

	"github.com/joshuapare/poolkit/pool"
	"github.com/joshuapare/poolkit/pool/bitmap"
	"github.com/joshuapare/poolkit/pool/buddy"
	"github.com/joshuapare/poolkit/pool/chained"
	"github.com/joshuapare/poolkit/pool/onebig"
	"github.com/joshuapare/poolkit/pool/passthrough"
)

// Default is the process-wide registry used by Init, Shutdown and Add.
var Default = pool.NewRegistry()

// Backends returns the built-in backends.
func Backends() []pool.Backend {
	return []pool.Backend{
		passthrough.Backend,
		chained.Backend,
		buddy.Backend,
		bitmap.Backend,
		onebig.Backend,
	}
}

// RegisterAll registers every built-in backend in reg. Backends whose name
// is already taken are skipped, so calling it twice is harmless.
func RegisterAll(reg *pool.Registry) error {
	for _, b := range Backends() {
		if err := reg.Register(b); err != nil && !errors.Is(err, pool.ErrDuplicateName) {
			return err
		}
	}
	return nil
}

// Init registers the built-in backends in Default.
func Init() error {
	return RegisterAll(Default)
}

// Shutdown unregisters every backend from Default. Pools created before
// become inoperable; they still need Close to release their memory.
func Shutdown() {
	Default.Shutdown()
}

// Add creates a pool from the Default registry.
func Add(backend, context, options string) (*pool.Pool, error) {
	return Default.Add(backend, context, options)
}
