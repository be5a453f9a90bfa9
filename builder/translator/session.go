package translator

import (
	"sync"

	"omevox/builder/volume"
)

// Session memoizes translations for one conversion job.
type Session struct {
	rules *Rules
	memo  sync.Map
}

func NewSession(rules *Rules) *Session {
	return &Session{rules: rules}
}

func (s *Session) Translate(id string) string {
	if id == "" {
		return ""
	}
	if v, ok := s.memo.Load(id); ok {
		return v.(string)
	}
	out := s.rules.Translate(id)
	s.memo.Store(id, out)
	return out
}

// Size is the number of distinct ids seen so far.
func (s *Session) Size() int {
	n := 0
	s.memo.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

type translated struct {
	src volume.Volume
	s   *Session
}

func (t *translated) Dims() volume.Dims { return t.src.Dims() }

func (t *translated) Block(index int) string { return t.s.Translate(t.src.Block(index)) }

// Volume views v through the session.
func (s *Session) Volume(v volume.Volume) volume.Volume {
	return &translated{src: v, s: s}
}
