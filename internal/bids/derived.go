package bids

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotPreprocessed reports that the dataset has no derivatives tree.
var ErrNotPreprocessed = errors.New("the data have not been preprocessed with fmriprep: no 'derivatives' directory found")

// boldSuffix matches preprocessed BOLD runs in MNI space at 2mm resolution.
const boldSuffix = "MNI152NLin2009cAsym_res-2_desc-preproc_bold"

// confoundsSuffix matches fmriprep confound tables.
const confoundsSuffix = "confounds_timeseries.tsv"

// Derived is a BIDS dataset preprocessed with fmriprep. DataPath points
// at the directory holding the sub-* trees, found by descending from
// <root>/derivatives.
type Derived struct {
	*Dataset

	DataPath string

	// ConnMatrixPaths maps subject labels to previously computed
	// connectivity matrix artifacts found under clean_data.
	ConnMatrixPaths map[string]string
}

// OpenDerived opens a preprocessed dataset, locating the subject trees
// under the derivatives directory and scanning for existing
// connectivity matrix artifacts.
func OpenDerived(root string) (*Derived, error) {
	raw, err := Open(root)
	if err != nil {
		return nil, err
	}
	dataPath, err := findSubjectDirs(filepath.Join(root, "derivatives"))
	if err != nil {
		return nil, err
	}
	d := &Derived{
		Dataset:         raw,
		DataPath:        dataPath,
		ConnMatrixPaths: make(map[string]string),
	}

	subjects, err := d.Subjects()
	if err != nil {
		return nil, err
	}
	for _, subject := range subjects {
		outputDir := d.OutputDir(subject)
		entries, err := os.ReadDir(outputDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.Contains(e.Name(), "conn-matrix") {
				d.ConnMatrixPaths[subject] = filepath.Join(outputDir, e.Name())
				break
			}
		}
	}
	return d, nil
}

// findSubjectDirs descends from the derivatives directory until it
// reaches a directory containing sub-* entries. fmriprep nests its
// output one level down (derivatives/fmriprep/sub-*).
func findSubjectDirs(path string) (string, error) {
	for {
		entries, err := os.ReadDir(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", ErrNotPreprocessed
			}
			return "", fmt.Errorf("reading %s: %w", path, err)
		}

		var nextDir string
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "sub-") {
				return path, nil
			}
			if e.IsDir() && nextDir == "" {
				nextDir = filepath.Join(path, e.Name())
			}
		}
		if nextDir == "" {
			return "", fmt.Errorf("no subject directories found under %s", path)
		}
		path = nextDir
	}
}

// Sessions returns the session labels of a subject, without the ses-
// prefix. Subjects without session subdirectories yield an empty list.
func (d *Derived) Sessions(subject string) ([]string, error) {
	subjectDir := filepath.Join(d.DataPath, "sub-"+subject)
	entries, err := os.ReadDir(subjectDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", subjectDir, err)
	}
	var sessions []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "ses-") {
			sessions = append(sessions, strings.TrimPrefix(e.Name(), "ses-"))
		}
	}
	return sessions, nil
}

// BoldPaths returns the preprocessed BOLD runs of a subject for a task,
// one per session in session order, or a single run for flat subjects.
func (d *Derived) BoldPaths(subject, task string) ([]string, error) {
	return d.funcFiles(subject, task, isBold)
}

// ConfoundPaths returns the confound tables of a subject for a task, in
// the same order as BoldPaths.
func (d *Derived) ConfoundPaths(subject, task string) ([]string, error) {
	return d.funcFiles(subject, task, func(name string) bool {
		return strings.HasSuffix(name, confoundsSuffix)
	})
}

func isBold(name string) bool {
	return strings.HasSuffix(name, boldSuffix+".nii.gz") ||
		strings.HasSuffix(name, boldSuffix+".nii")
}

func (d *Derived) funcFiles(subject, task string, match func(string) bool) ([]string, error) {
	subjectDir := filepath.Join(d.DataPath, "sub-"+subject)
	sessions, err := d.Sessions(subject)
	if err != nil {
		return nil, err
	}

	var funcDirs []string
	if len(sessions) != 0 {
		for _, session := range sessions {
			sessionDir := filepath.Join(subjectDir, "ses-"+session, "func")
			if _, err := os.Stat(sessionDir); err == nil {
				funcDirs = append(funcDirs, sessionDir)
			}
		}
	} else {
		funcDirs = []string{filepath.Join(subjectDir, "func")}
	}

	var paths []string
	for _, dir := range funcDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, e := range entries {
			if strings.Contains(e.Name(), "task-"+task) && match(e.Name()) {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}
	return paths, nil
}

// OutputDir returns the clean_data output directory of a subject.
func (d *Derived) OutputDir(subject string) string {
	return filepath.Join(d.DataPath, "clean_data", "sub-"+subject, "func")
}

// CleanTSPath returns the artifact path for a cleaned time series.
func (d *Derived) CleanTSPath(subject, task, parcellation string, parcels int) string {
	name := fmt.Sprintf("clean-ts-sub-%s-%s-%s%d.npy", subject, task, parcellation, parcels)
	return filepath.Join(d.OutputDir(subject), name)
}

// ConnMatrixPath returns the artifact path for a connectivity matrix.
func (d *Derived) ConnMatrixPath(subject, task, parcellation string, parcels int) string {
	name := fmt.Sprintf("conn-matrix-sub-%s-%s-%s%d.npy", subject, task, parcellation, parcels)
	return filepath.Join(d.OutputDir(subject), name)
}
