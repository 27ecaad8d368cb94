// Package mpv drives mpv processes over the JSON IPC protocol.
//
// Two roles are implemented on the same process plumbing:
//
//   - [Backend] : the primary window's media backend, implementing
//     [playback.MediaBackend]
//   - [Host] : spawns detached fullscreen windows, implementing the
//     coordinator's window host
//
// Each role owns its own mpv process; the media device handle is exclusive,
// so at most one process has an active stream at a time and detach/reattach
// is the only handoff path.
//
// All player invocations use exec.Command with explicit argument slices; no
// shell is ever involved.
package mpv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zalun/karaoke-engine/internal/shared"
)

// ipcConnectTimeout bounds how long we wait for a freshly spawned mpv to
// open its IPC socket.
const ipcConnectTimeout = 10 * time.Second

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type response struct {
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID int64           `json:"request_id,omitempty"`
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
}

// process is one running mpv with a connected IPC socket.
type process struct {
	cmd    *exec.Cmd
	conn   net.Conn
	logger *log.Logger

	mu      sync.Mutex
	reqID   int64
	pending map[int64]chan response
	closed  bool

	events chan response // mpv events (non-response messages)
	done   chan struct{} // closed when the reader exits
}

// spawn starts an mpv process with an IPC socket and waits for the socket to
// accept a connection.
func spawn(binary string, args []string, logger *log.Logger) (*process, error) {
	if binary == "" {
		binary = "mpv"
	}
	socket := filepath.Join(os.TempDir(), fmt.Sprintf("kara-mpv-%s.sock", shared.GenerateID()))

	argv := []string{
		"--no-terminal",
		"--idle=yes",
		"--input-ipc-server=" + socket,
	}
	argv = append(argv, args...)

	cmd := exec.Command(binary, argv...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", binary, err)
	}

	conn, err := dialWithRetry(socket, ipcConnectTimeout)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("connecting to mpv ipc: %w", err)
	}

	p := &process{
		cmd:     cmd,
		conn:    conn,
		logger:  logger,
		pending: make(map[int64]chan response),
		events:  make(chan response, 64),
		done:    make(chan struct{}),
	}
	go p.readLoop()
	go func() {
		_ = cmd.Wait()
		_ = os.Remove(socket)
	}()
	return p, nil
}

// dialWithRetry polls the socket until mpv creates it. The IPC server comes
// up shortly after process start, not synchronously with it.
func dialWithRetry(socket string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// readLoop dispatches incoming lines to command waiters or the event stream.
func (p *process) readLoop() {
	defer close(p.done)
	defer close(p.events)

	scanner := bufio.NewScanner(p.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg response
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			p.logger.Debug("unparseable ipc message", "raw", scanner.Text())
			continue
		}

		if msg.Event == "" && msg.RequestID != 0 {
			p.mu.Lock()
			ch := p.pending[msg.RequestID]
			delete(p.pending, msg.RequestID)
			p.mu.Unlock()
			if ch != nil {
				ch <- msg
			}
			continue
		}
		if msg.Event != "" {
			select {
			case p.events <- msg:
			default:
				// A stalled consumer must not wedge the ipc reader.
			}
		}
	}

	// Socket gone: fail every waiter.
	p.mu.Lock()
	p.closed = true
	for id, ch := range p.pending {
		delete(p.pending, id)
		ch <- response{Error: "ipc connection closed"}
	}
	p.mu.Unlock()
}

// command runs one IPC command and waits for its reply.
func (p *process) command(args ...any) (json.RawMessage, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("mpv ipc closed")
	}
	p.reqID++
	id := p.reqID
	ch := make(chan response, 1)
	p.pending[id] = ch
	p.mu.Unlock()

	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, err
	}
	payload = append(payload, '\n')

	p.mu.Lock()
	_, err = p.conn.Write(payload)
	p.mu.Unlock()
	if err != nil {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, fmt.Errorf("writing ipc command: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	case <-time.After(5 * time.Second):
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, fmt.Errorf("mpv ipc timeout")
	}
}

func (p *process) setProperty(name string, value any) error {
	_, err := p.command("set_property", name, value)
	return err
}

func (p *process) observe(id int, name string) error {
	_, err := p.command("observe_property", id, name)
	return err
}

// stop kills the mpv process and waits for the reader to drain.
func (p *process) stop() error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if !closed {
		// Polite first: quit via ipc, then kill.
		_, _ = p.command("quit")
	}
	_ = p.conn.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}
