package formatter

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Braille dot spinner frames.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows progress on w while a blocking call such as a final flush
// runs. It draws nothing until delay has passed, so fast calls stay quiet.
type Spinner struct {
	mu      sync.Mutex
	w       io.Writer
	message string
	delay   time.Duration
	stop    chan struct{}
	done    chan struct{}
}

func NewSpinner(w io.Writer, message string, delay time.Duration) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		delay:   delay,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the animation. Call Stop to end it.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)

		select {
		case <-s.stop:
			return
		case <-time.After(s.delay):
		}

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			frame := spinnerFrames[i%len(spinnerFrames)]
			fmt.Fprintf(s.w, "\r  %s %s", StylePurple.Render(frame), Dim(s.message))
			select {
			case <-s.stop:
				fmt.Fprint(s.w, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stop:
		return
	default:
		close(s.stop)
	}
	<-s.done
}

// StartSpinner creates and starts a spinner, returning its stop function.
func StartSpinner(w io.Writer, message string, delay time.Duration) func() {
	s := NewSpinner(w, message, delay)
	s.Start()
	return s.Stop
}
