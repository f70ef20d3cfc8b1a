package transport

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"zynx/internal/errkind"
)

// Stdio spawns path with args on first use and keeps the child alive
// across many exchanges, matching the teacher's long-lived
// ebpf.EventReader/ringbuf.Reader pair: expensive setup happens once,
// then many cheap operations reuse it. Child environment is reduced to a
// minimal, explicit set — the same posture
// bureau-foundation-bureau/sandbox/sandbox.go takes with its spawned
// bwrap process, down to the comment about not leaking the parent's full
// environment and setting a dedicated process group for clean teardown.
type Stdio struct {
	path string
	args []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	dead   bool
}

// NewStdio creates a Stdio transport. The child is not spawned until the
// first Open call.
func NewStdio(path string, args []string) *Stdio {
	return &Stdio{path: path, args: args, dead: true}
}

func (s *Stdio) Open(ctx context.Context) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		if err := s.spawnLocked(); err != nil {
			return nil, errkind.New(errkind.SpawnFailed, err)
		}
	}

	return &stdioConn{t: s, stdin: s.stdin, stdout: s.stdout}, nil
}

func (s *Stdio) Close(conn Connection) error {
	// The lease, not the underlying pipes, is released here; conn.Close
	// reports any I/O failure it observed so the next Open respawns.
	return conn.Close()
}

func (s *Stdio) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardownLocked()
}

func (s *Stdio) teardownLocked() error {
	if s.cmd == nil {
		return nil
	}
	if s.cmd.Process != nil {
		// Kill the whole process group (Setpgid below), not just the
		// immediate child, in case it forked helpers of its own.
		_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGKILL)
	}
	_ = s.stdin.Close()
	_ = s.stdout.Close()
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil
	s.dead = true
	return nil
}

func (s *Stdio) spawnLocked() error {
	if s.cmd != nil {
		// Previous child was reaped, or its last lease saw an I/O error
		// (EOF, a write failure, or a missed deadline); release its pipes
		// before replacing them.
		_ = s.stdin.Close()
		_ = s.stdout.Close()
		s.cmd = nil
	}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd := exec.Command(s.path, s.args...)
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = os.Stderr
	// Minimal, explicit environment: the daemon decides what a filter
	// gets to see, not whatever happened to be in its own environment.
	cmd.Env = []string{"PATH=/system/bin:/system/xbin"}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return fmt.Errorf("spawn %s: %w", s.path, err)
	}

	// The daemon only needs the write half of stdin and the read half of
	// stdout; the ends handed to the child are closed on this side.
	stdinR.Close()
	stdoutW.Close()

	s.cmd = cmd
	s.stdin = stdinW
	s.stdout = stdoutR
	s.dead = false

	go s.waitLocked(cmd)

	return nil
}

// waitLocked reaps the child in the background and marks the transport
// dead the moment it exits, covering the "reaped pid" half of §4.3's
// death-detection requirement (the other half, EOF on stdout, is
// observed synchronously by whichever exchange is reading when the child
// dies).
func (s *Stdio) waitLocked(cmd *exec.Cmd) {
	_ = cmd.Wait()
	s.markDead()
}

func (s *Stdio) markDead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = true
}

// stdioConn is the Connection leased out by Stdio.Open. Its Close does
// not close the underlying pipes (per §9's "resource-scoped cleanup"
// note: the stdio child's streams are only closed at adapter teardown);
// it only reports observed I/O failure back to the transport so the next
// Open respawns.
type stdioConn struct {
	t      *Stdio
	stdin  *os.File
	stdout *os.File
	failed bool
}

func (c *stdioConn) Read(p []byte) (int, error) {
	n, err := c.stdout.Read(p)
	if err != nil {
		c.failed = true
	}
	return n, err
}

func (c *stdioConn) Write(p []byte) (int, error) {
	n, err := c.stdin.Write(p)
	if err != nil {
		c.failed = true
	}
	return n, err
}

func (c *stdioConn) SetReadDeadline(t time.Time) error  { return c.stdout.SetReadDeadline(t) }
func (c *stdioConn) SetWriteDeadline(t time.Time) error { return c.stdin.SetWriteDeadline(t) }

func (c *stdioConn) Close() error {
	if c.failed {
		c.t.markDead()
	}
	return nil
}
