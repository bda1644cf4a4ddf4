// Package anchor paints a single mutable status line
// at the bottom of the terminal output, so progress
// updates do not scroll regular messages away.
package anchor

import (
	"fmt"
	"io"
	"os"
	"sync"

	"atomicgo.dev/cursor"
)

type Anchor struct {
	mu     sync.Mutex
	writer io.Writer
	status string
	tty    bool
}

func New() *Anchor {
	return &Anchor{writer: os.Stdout, tty: isTerminal(os.Stdout)}
}

func isTerminal(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Status replaces the anchored line
func (anchor *Anchor) Status(format string, args ...any) {
	anchor.mu.Lock()
	defer anchor.mu.Unlock()

	anchor.status = fmt.Sprintf(format, args...)
	if !anchor.tty {
		return
	}
	anchor.wipe()
	fmt.Fprint(anchor.writer, anchor.status)
}

// Printf emits a permanent line above the anchored one
func (anchor *Anchor) Printf(format string, args ...any) {
	anchor.mu.Lock()
	defer anchor.mu.Unlock()

	if !anchor.tty {
		fmt.Fprintf(anchor.writer, format+"\n", args...)
		return
	}
	anchor.wipe()
	fmt.Fprintf(anchor.writer, format+"\n", args...)
	fmt.Fprint(anchor.writer, anchor.status)
}

// Close wipes the anchored line for good
func (anchor *Anchor) Close() {
	anchor.mu.Lock()
	defer anchor.mu.Unlock()

	anchor.status = ""
	if anchor.tty {
		anchor.wipe()
	}
}

func (anchor *Anchor) wipe() {
	cursor.StartOfLine()
	cursor.ClearLine()
}
