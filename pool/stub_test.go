package pool

import "errors"

// stubBackend hands out heap slices and records the calls it receives.
type stubBackend struct {
	name  string
	inits int
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Init(cfg *Config) (Instance, error) {
	if fail, err := cfg.Options.Bool("fail", false); err != nil {
		return nil, err
	} else if fail {
		return nil, errors.New("stub refused")
	}
	b.inits++
	return &stubInstance{cfg: cfg, live: make(map[uintptr]bool)}, nil
}

type stubInstance struct {
	cfg      *Config
	live     map[uintptr]bool
	moved    uint64
	gcs      int
	shutdown bool
}

func (s *stubInstance) Alloc(size int) []byte {
	if s.cfg.ElementSize > 0 && size > s.cfg.ElementSize {
		return nil
	}
	b := make([]byte, size)
	s.live[Addr(b)] = true
	return b
}

func (s *stubInstance) Realloc(elem []byte, size int) []byte {
	out := s.Alloc(size)
	if out == nil {
		return nil
	}
	copy(out, elem)
	s.Free(elem)
	return out
}

func (s *stubInstance) Free(elem []byte) { delete(s.live, Addr(elem)) }

func (s *stubInstance) Repack(fn RepackFunc) {
	for range s.live {
		dst := make([]byte, 1)
		fn(dst, dst)
		s.moved++
	}
}

func (s *stubInstance) GC() { s.gcs++ }

func (s *stubInstance) Stats() Stats {
	return Stats{Live: len(s.live), Relocated: s.moved}
}

func (s *stubInstance) Shutdown() {
	s.shutdown = true
	clear(s.live)
}
