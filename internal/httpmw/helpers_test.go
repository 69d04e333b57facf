package httpmw

import (
	"context"
	"net/http"
	"sync"

	"github.com/MShaffar19/webbundle/internal/log"
)

type captured struct {
	msg string
	err error
	kv  []any
}

// spyLogger records With, Info and Error calls. With returns the same spy
// so every call lands in one place.
type spyLogger struct {
	log.Logger
	mu     sync.Mutex
	withs  [][]any
	infos  []captured
	errors []captured
}

func newSpyLogger() *spyLogger { return &spyLogger{Logger: log.Nop()} }

func (s *spyLogger) With(kv ...any) log.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withs = append(s.withs, kv)
	return s
}

func (s *spyLogger) Info(_ context.Context, msg string, kv ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, captured{msg: msg, kv: kv})
}

func (s *spyLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, captured{msg: msg, err: err, kv: kv})
}

// field returns the value following key in kv.
func field(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})
