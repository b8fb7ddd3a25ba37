package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type Spinner struct {
	out     io.Writer
	chars   []string
	delay   time.Duration
	message string
	active  bool
	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	width   int
}

func New(out io.Writer, message string) *Spinner {
	return &Spinner{
		out:     out,
		chars:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		delay:   100 * time.Millisecond,
		message: message,
	}
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.delay)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			line := fmt.Sprintf("\r%s %s", s.chars[i%len(s.chars)], s.message)
			if len(line) > s.width {
				s.width = len(line)
			}
			fmt.Fprint(s.out, line)
			s.mu.Unlock()

			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears its line. It blocks until the
// animation goroutine has exited.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done

	s.mu.Lock()
	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.width)+"\r")
	s.mu.Unlock()
}

func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *Spinner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
