package pool

import (
	"fmt"
	"slices"
)

// Registry maps backend names to backends.
//
// A Registry performs no locking. Register, Unregister and Add must not run
// concurrently with each other; registering every backend once at startup
// before creating pools needs no synchronization at all.
type Registry struct {
	entries map[string]*entry
}

// entry is one registration. Pools keep a pointer to the entry they were
// created from and stop working once it is retired.
type entry struct {
	backend Backend
	retired bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds b under b.Name(). It fails with ErrDuplicateName when the
// name is taken; the existing registration is left untouched.
func (r *Registry) Register(b Backend) error {
	name := b.Name()
	if name == "" {
		return &Error{Kind: KindInvalidOption, Msg: "backend name is empty"}
	}
	if _, ok := r.entries[name]; ok {
		return &Error{Kind: KindDuplicateName, Msg: fmt.Sprintf("backend %q already registered", name)}
	}
	r.entries[name] = &entry{backend: b}
	logger.Debug("backend registered", "backend", name)
	return nil
}

// Unregister removes the registration of b.Name(). It is a no-op when the
// name is not registered. Pools created from the removed registration become
// inoperable: Alloc and Realloc return nil and Free does nothing.
// Close still releases their memory.
func (r *Registry) Unregister(b Backend) {
	name := b.Name()
	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.retired = true
	delete(r.entries, name)
	logger.Debug("backend unregistered", "backend", name)
}

// Resolve returns the backend registered under name.
func (r *Registry) Resolve(name string) (Backend, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Msg: fmt.Sprintf("backend %q not registered", name)}
	}
	return e.backend, nil
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Shutdown unregisters every backend.
func (r *Registry) Shutdown() {
	for name, e := range r.entries {
		e.retired = true
		delete(r.entries, name)
	}
}

// Add creates a pool from the backend registered under name.
//
// options is a "key=value[,key=value...]" string. The keys element_size,
// alignment and source are understood by every backend; the rest are
// backend specific. Unknown keys fail pool creation.
//
// Errors satisfy errors.Is against ErrNotFound or ErrInitFailed, and
// configuration problems additionally against ErrInvalidOption.
func (r *Registry) Add(name, context, options string) (*Pool, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, &Error{Kind: KindNotFound, Msg: fmt.Sprintf("backend %q not registered", name)}
	}

	opts, err := ParseOptions(options)
	if err != nil {
		return nil, initFailed(name, err)
	}
	cfg, err := newConfig(context, opts)
	if err != nil {
		return nil, initFailed(name, err)
	}
	cfg.Logger = logger.With("backend", name, "context", context)

	inst, err := e.backend.Init(cfg)
	if err != nil {
		return nil, initFailed(name, err)
	}
	if unused := opts.Unused(); len(unused) > 0 {
		inst.Shutdown()
		return nil, initFailed(name, InvalidOption(unused[0], "not understood by backend %q", name))
	}

	p := &Pool{
		entry:    e,
		name:     name,
		context:  context,
		elemSize: cfg.ElementSize,
		align:    cfg.Alignment,
		inst:     inst,
		log:      cfg.Logger,
	}
	p.log.Debug("pool created", "element_size", p.elemSize, "alignment", p.align, "source", cfg.Source.Name())
	return p, nil
}

func initFailed(name string, cause error) error {
	return &Error{Kind: KindInitFailed, Msg: fmt.Sprintf("backend %q", name), Err: cause}
}
