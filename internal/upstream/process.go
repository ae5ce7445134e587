// Where: internal/upstream/process.go
// What: Supervisor for the OpenNext Node server process.
// Why: The custom handler owns the Node server lifetime inside one Functions worker.
package upstream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/poruru-code/opennext-azure/internal/probe"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProcessConfig describes how to launch the Node server.
type ProcessConfig struct {
	Node  string
	Dir   string
	Entry string
	Port  int
	Env   []string
	// ReadyPath is polled until it answers 200.
	ReadyPath    string
	ReadyTimeout time.Duration
}

// Process runs and stops one Node server.
type Process struct {
	cfg  ProcessConfig
	log  *zap.Logger
	cmd  *exec.Cmd
	done chan struct{}
	err  error
	mu   sync.Mutex
}

// NewProcess fills defaults: node from PATH, index.mjs entry, "/" as ready path.
func NewProcess(cfg ProcessConfig, log *zap.Logger) *Process {
	if cfg.Node == "" {
		cfg.Node = "node"
	}
	if cfg.Entry == "" {
		cfg.Entry = "index.mjs"
	}
	if cfg.ReadyPath == "" {
		cfg.ReadyPath = "/"
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Process{cfg: cfg, log: log.Named("node"), done: make(chan struct{})}
}

// Origin is the loopback URL the server listens on.
func (p *Process) Origin() string {
	return fmt.Sprintf("http://127.0.0.1:%d", p.cfg.Port)
}

// Start launches the server and waits until it is ready.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cmd != nil {
		p.mu.Unlock()
		return errors.New("node server already started")
	}
	cmd := exec.Command(p.cfg.Node, filepath.Join(p.cfg.Dir, p.cfg.Entry))
	cmd.Dir = p.cfg.Dir
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	cmd.Env = append(cmd.Env, "PORT="+strconv.Itoa(p.cfg.Port), "HOSTNAME=127.0.0.1")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.mu.Unlock()
		return errors.Wrap(err, "node stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		p.mu.Unlock()
		return errors.Wrap(err, "node stderr")
	}
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return errors.Wrapf(err, "start %s", p.cfg.Node)
	}
	p.cmd = cmd
	p.mu.Unlock()

	var pipes sync.WaitGroup
	pipes.Add(2)
	go p.pump(&pipes, stdout, zap.InfoLevel)
	go p.pump(&pipes, stderr, zap.WarnLevel)
	go func() {
		pipes.Wait()
		err := cmd.Wait()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()

	p.log.Info("node server starting", zap.Int("pid", cmd.Process.Pid), zap.Int("port", p.cfg.Port))
	waiter := probe.NewWaiter(p.cfg.ReadyTimeout, 200*time.Millisecond)
	readyCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.done:
			cancel()
		case <-readyCtx.Done():
		}
	}()
	if err := waiter.Wait(readyCtx, p.Origin()+p.cfg.ReadyPath); err != nil {
		if exitErr := p.Err(); exitErr != nil {
			return errors.Wrap(exitErr, "node server exited before ready")
		}
		return err
	}
	p.log.Info("node server ready", zap.String("origin", p.Origin()))
	return nil
}

func (p *Process) pump(wg *sync.WaitGroup, r io.Reader, level zapcore.Level) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ce := p.log.Check(level, scanner.Text()); ce != nil {
			ce.Write()
		}
	}
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error once the process has exited.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop sends SIGTERM and waits up to grace before killing the process.
func (p *Process) Stop(grace time.Duration) error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return errors.Wrap(err, "signal node server")
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
		p.log.Warn("node server did not stop in time; killing")
		return cmd.Process.Kill()
	}
}
