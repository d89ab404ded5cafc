// internal/cluster/process.go
//
// Worker processes.
//
// Context
// -------
// A supervisor re-executes its own binary once per worker.  The child
// finds out it is a worker through EnvWorker and serves on the listening
// socket it inherits as file descriptor 3, so every worker accepts on the
// same port and the kernel spreads connections between them.
//
// Spawner and Process hide os/exec so the supervisor loop can be driven
// by fakes in tests.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
)

// EnvWorker is set to "1" in every worker's environment.
const EnvWorker = "CONDUCTOR_WORKER"

// listenerFD is the first ExtraFiles slot (after stdin, stdout, stderr).
const listenerFD = 3

// Role is what the current process does.
type Role int

const (
	RoleSingle     Role = iota // serve directly, no workers
	RoleSupervisor             // fork and watch workers, serve nothing
	RoleWorker                 // serve on the inherited listener
)

func (r Role) String() string {
	switch r {
	case RoleSupervisor:
		return "supervisor"
	case RoleWorker:
		return "worker"
	default:
		return "single"
	}
}

// IsWorker reports whether this process was spawned by a supervisor.
func IsWorker() bool { return os.Getenv(EnvWorker) == "1" }

// DetectRole picks the role for a process configured with workers.  With
// clustering off the process serves alone, whatever EnvWorker says.
func DetectRole(workers int) Role {
	switch {
	case workers <= 0:
		return RoleSingle
	case IsWorker():
		return RoleWorker
	default:
		return RoleSupervisor
	}
}

// InheritedListener reopens the socket passed down by the supervisor.
func InheritedListener() (net.Listener, error) {
	f := os.NewFile(listenerFD, "conductor-listener")
	if f == nil {
		return nil, errors.New("cluster: no inherited listener")
	}
	defer f.Close()
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("cluster: inherited listener: %w", err)
	}
	return ln, nil
}

/*──────────────────────────── spawning ────────────────────────────────────*/

// Process is one running worker.
type Process interface {
	Pid() int
	Wait() error
	Signal(sig os.Signal) error
}

// Spawner starts workers.
type Spawner interface {
	Spawn(ctx context.Context) (Process, error)
}

// ExecSpawner re-executes Path with Args, handing Listener down as fd 3.
type ExecSpawner struct {
	Path     string
	Args     []string
	Listener *net.TCPListener
	Stdout   io.Writer
	Stderr   io.Writer
}

// NewExecSpawner spawns copies of the running executable with the same
// arguments.
func NewExecSpawner(ln *net.TCPListener) (*ExecSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("cluster: locate executable: %w", err)
	}
	return &ExecSpawner{
		Path:     exe,
		Args:     os.Args[1:],
		Listener: ln,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}, nil
}

// Spawn starts one worker.  ctx is not bound to the child's lifetime; the
// supervisor stops workers with signals.
func (s *ExecSpawner) Spawn(_ context.Context) (Process, error) {
	f, err := s.Listener.File()
	if err != nil {
		return nil, fmt.Errorf("cluster: dup listener: %w", err)
	}
	defer f.Close()

	cmd := exec.Command(s.Path, s.Args...)
	cmd.Env = append(os.Environ(), EnvWorker+"=1")
	cmd.ExtraFiles = []*os.File{f}
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("cluster: start worker: %w", err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct{ cmd *exec.Cmd }

func (p *execProcess) Pid() int                   { return p.cmd.Process.Pid }
func (p *execProcess) Wait() error                { return p.cmd.Wait() }
func (p *execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
