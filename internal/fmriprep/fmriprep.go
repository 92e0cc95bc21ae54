// Package fmriprep shells out to the containerized fmriprep-docker
// preprocessing pipeline, teeing its output to a per-subject log file
// and polling the child process to completion.
package fmriprep

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/victoris93/neuroconn/internal/ctxlog"
)

// Options parameterize one preprocessing run.
type Options struct {
	// FSLicensePath is the path to the FreeSurfer license file.
	FSLicensePath string

	// SkipBIDSValidation skips the BIDS validator inside the container.
	SkipBIDSValidation bool

	// FSReconAll runs FreeSurfer surface reconstruction. When false,
	// --fs-no-reconall is passed.
	FSReconAll bool

	// MemMB is the container memory limit in megabytes.
	MemMB int

	// Task restricts preprocessing to one task. Empty preprocesses all.
	Task string

	// WorkDir is the fmriprep working directory. Defaults to $HOME.
	WorkDir string
}

// Runner invokes fmriprep-docker for subjects of one BIDS dataset.
type Runner struct {
	// Root is the BIDS dataset root.
	Root string

	// Shell runs the generated command line. Defaults to bash.
	Shell string

	// Env is the child environment. Defaults to the current process's.
	Env []string

	// PollInterval is the completion polling period.
	PollInterval time.Duration

	// Output receives the log contents once the run finishes. Defaults
	// to stdout.
	Output io.Writer
}

// New returns a Runner for the dataset at root.
func New(root string) *Runner {
	return &Runner{
		Root:         root,
		Shell:        "bash",
		PollInterval: 100 * time.Millisecond,
		Output:       os.Stdout,
	}
}

// LogDir returns the directory holding per-subject fmriprep logs.
func (r *Runner) LogDir() string {
	return filepath.Join(r.Root, "fmriprep_logs")
}

// LogPath returns the log file of a subject's run.
func (r *Runner) LogPath(subject string) string {
	return filepath.Join(r.LogDir(), fmt.Sprintf("fmriprep_logs_sub-%s.txt", subject))
}

// Script builds the shell command line for one subject. The output
// lands under <root>/derivatives/fmriprep in MNI152NLin2009cAsym space
// at 2mm resolution.
func (r *Runner) Script(subject string, opts Options) string {
	fmriprepPath := filepath.Join(r.Root, "derivatives", "fmriprep")

	skipValidation := ""
	if opts.SkipBIDSValidation {
		skipValidation = "--skip-bids-validation"
	}
	reconAll := "--fs-no-reconall"
	if opts.FSReconAll {
		reconAll = ""
	}
	task := ""
	if opts.Task != "" {
		task = "--task-id " + opts.Task
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "$HOME"
	}

	lines := []string{
		`export PATH="$HOME/.local/bin:$PATH"`,
		fmt.Sprintf("mkdir -p %s", fmriprepPath),
		fmt.Sprintf("export FS_LICENSE=%s", opts.FSLicensePath),
		fmt.Sprintf("fmriprep-docker %s %s participant --participant-label %s %s --fs-license-file $FS_LICENSE %s %s --stop-on-first-crash --mem_mb %d --output-spaces MNI152NLin2009cAsym:res-2 -w %s",
			r.Root, fmriprepPath, subject, skipValidation, reconAll, task, opts.MemMB, workDir),
	}
	return strings.Join(lines, "\n")
}

// Run preprocesses one subject, blocking until the container pipeline
// exits or the context is cancelled. Stdout and stderr go to the
// subject's log file, which is echoed to Output afterwards.
func (r *Runner) Run(ctx context.Context, subject string, opts Options) error {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(r.LogDir(), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logPath := r.LogPath(subject)
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}

	cmd := exec.Command(r.Shell, "-c", r.Script(subject, opts))
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if r.Env != nil {
		cmd.Env = r.Env
	}

	logger.Info("running fmriprep", "subject", subject, "log", logPath)
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("starting fmriprep: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var runErr error
poll:
	for {
		select {
		case runErr = <-done:
			break poll
		case <-ctx.Done():
			cmd.Process.Kill()
			<-done
			logFile.Close()
			return fmt.Errorf("fmriprep for sub-%s: %w", subject, ctx.Err())
		default:
			time.Sleep(r.PollInterval)
		}
	}
	logFile.Close()

	if contents, err := os.ReadFile(logPath); err == nil && r.Output != nil {
		fmt.Fprint(r.Output, string(contents))
	}

	if runErr != nil {
		return fmt.Errorf("fmriprep for sub-%s: %w (see %s)", subject, runErr, logPath)
	}
	logger.Info("fmriprep finished", "subject", subject)
	return nil
}
