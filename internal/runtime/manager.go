// Package runtime manages external analysis processes for local
// development: starting a script in a working directory bound to a port,
// stopping it, and polling its health. The job runner never calls this;
// it exists for operating auxiliary tooling next to the server.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"sync"
	"time"
)

// ProcessState is the lifecycle state of one managed process.
type ProcessState string

const (
	StateRunning ProcessState = "running"
	StateStopped ProcessState = "stopped"
	StateFailed  ProcessState = "failed"
)

// ProcessInfo describes one managed process.
type ProcessInfo struct {
	Name       string       `json:"name"`
	Script     string       `json:"script"`
	WorkingDir string       `json:"working_dir"`
	Port       int          `json:"port"`
	PID        int          `json:"pid"`
	State      ProcessState `json:"state"`
	StartedAt  time.Time    `json:"started_at"`
}

type managedProcess struct {
	info ProcessInfo
	cmd  *exec.Cmd
	done chan struct{}
}

// Manager owns a table of named local processes.
type Manager struct {
	mu        sync.Mutex
	processes map[string]*managedProcess
	client    *http.Client
	logger    *slog.Logger
}

// NewManager creates an empty process table.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		processes: make(map[string]*managedProcess),
		client:    &http.Client{Timeout: 3 * time.Second},
		logger:    logger.With(slog.String("component", "runtime")),
	}
}

// CheckRuntime verifies the interpreter needed by analysis scripts is on
// PATH and reports its resolved location.
func (m *Manager) CheckRuntime(interpreter string) (string, error) {
	path, err := exec.LookPath(interpreter)
	if err != nil {
		return "", fmt.Errorf("runtime %q not found: %w", interpreter, err)
	}
	return path, nil
}

// Start launches script under name in workingDir, passing the port as an
// argument. A name can only run one process at a time.
func (m *Manager) Start(name, interpreter, script, workingDir string, port int) (*ProcessInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.processes[name]; ok && existing.info.State == StateRunning {
		return nil, fmt.Errorf("process %q already running (pid %d)", name, existing.info.PID)
	}

	cmd := exec.Command(interpreter, script, "--port", fmt.Sprint(port))
	cmd.Dir = workingDir
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", name, err)
	}

	proc := &managedProcess{
		info: ProcessInfo{
			Name:       name,
			Script:     script,
			WorkingDir: workingDir,
			Port:       port,
			PID:        cmd.Process.Pid,
			State:      StateRunning,
			StartedAt:  time.Now(),
		},
		cmd:  cmd,
		done: make(chan struct{}),
	}
	m.processes[name] = proc

	go m.reap(name, proc)

	m.logger.Info("process started",
		slog.String("name", name),
		slog.Int("pid", proc.info.PID),
		slog.Int("port", port))

	info := proc.info
	return &info, nil
}

// reap waits for the process to exit and records its final state.
func (m *Manager) reap(name string, proc *managedProcess) {
	err := proc.cmd.Wait()
	close(proc.done)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		proc.info.State = StateFailed
		m.logger.Warn("process exited with error",
			slog.String("name", name),
			slog.String("error", err.Error()))
		return
	}
	proc.info.State = StateStopped
	m.logger.Info("process exited", slog.String("name", name))
}

// Stop kills the named process and waits for it to be reaped.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	proc, ok := m.processes[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown process %q", name)
	}
	running := proc.info.State == StateRunning
	m.mu.Unlock()

	if running {
		if err := proc.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill %q: %w", name, err)
		}
	}
	<-proc.done

	m.mu.Lock()
	proc.info.State = StateStopped
	m.mu.Unlock()
	return nil
}

// Status returns the current record for name.
func (m *Manager) Status(name string) (*ProcessInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	proc, ok := m.processes[name]
	if !ok {
		return nil, fmt.Errorf("unknown process %q", name)
	}
	info := proc.info
	return &info, nil
}

// List returns every known process record.
func (m *Manager) List() []ProcessInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ProcessInfo, 0, len(m.processes))
	for _, proc := range m.processes {
		out = append(out, proc.info)
	}
	return out
}

// Health probes the process port over HTTP.
func (m *Manager) Health(ctx context.Context, name string) error {
	info, err := m.Status(name)
	if err != nil {
		return err
	}
	if info.State != StateRunning {
		return fmt.Errorf("process %q is %s", name, info.State)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/health", info.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("health probe failed for %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("process %q unhealthy: status %d", name, resp.StatusCode)
	}
	return nil
}
